package mysql

const getValueSQL = `SELECT v FROM kv_store WHERE k = ?`

const upsertValueSQL = `
INSERT INTO kv_store (k, v)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  v          = VALUES(v),
  updated_at = CURRENT_TIMESTAMP
`
