package extract

// extractSystemPrompt instructs the model to convert a free-text task
// instruction into the structured sheet command. The sheet name and the body
// field set are pinned here; the model has no freedom to rename them.
const extractSystemPrompt = `あなたは自然文をスプレッドシート書き込み用のJSONに変換するアシスタントです。
出力は必ず {intent, sheet, body} のJSONオブジェクトのみとします。

フィールドのルール:
- intent: 常に "add_task"
- sheet: 常に "タスク管理"
- body.内容: 依頼されたタスクの内容。簡潔に。
- body.担当: 担当者の名前が文中にあれば抽出する。敬称（さん・様など）は除く。無ければ空文字列。
- body.期限: 期限が文中にあれば抽出する。日付は YYYY-MM-DD を推奨、相対表現（明日・来週など）はそのまま残してよい。無ければ空文字列。
- body.追加日: 常に空文字列。サーバー側で記入する。

重要なルール:
1. 不明なフィールドは空文字列にする。質問文を値として出力してはならない。
2. フィールドを追加・省略してはならない。
3. JSONオブジェクトのみを出力する。マークダウンや説明文は不要。`

// commandSchemaJSON is the strict response schema sent with every extraction
// request. All body fields are required; unknown properties are rejected.
const commandSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["intent", "sheet", "body"],
  "properties": {
    "intent": {"type": "string"},
    "sheet": {"type": "string"},
    "body": {
      "type": "object",
      "additionalProperties": false,
      "required": ["内容", "担当", "期限", "追加日"],
      "properties": {
        "内容": {"type": "string"},
        "担当": {"type": "string"},
        "期限": {"type": "string"},
        "追加日": {"type": "string"}
      }
    }
  }
}`
