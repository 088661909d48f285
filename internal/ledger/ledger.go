package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Writer appends one row to llm_call_logs per model invocation, success
// or failure. The log is an audit trail: nothing in the core ever reads
// it back.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Entry describes one model call attempt.
type Entry struct {
	UserID       string
	ModelName    string
	Prompt       string
	Response     string
	TokensUsed   int
	Duration     time.Duration
	Status       string // success | error | timeout
	ErrorMessage string
	Metadata     map[string]any
}

func (w Writer) Append(ctx context.Context, e Entry) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	var metadata any
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal call metadata: %w", err)
		}
		metadata = string(data)
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO llm_call_logs(id,user_id,model_name,prompt,response,tokens_used,duration_ms,status,error_message,metadata_json,created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.New().String(), nullable(e.UserID), e.ModelName, e.Prompt, nullable(e.Response),
		nullableInt(e.TokensUsed), e.Duration.Milliseconds(), e.Status, nullable(e.ErrorMessage), metadata, ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
