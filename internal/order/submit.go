package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/storefront/internal/backend"
)

// Ack is the order service acknowledgement.
type Ack struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// Submitter hands a Submission to the order service.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Ack, error)
}

// DefaultFunction is the backend RPC that creates orders.
const DefaultFunction = "create_order"

// RPCSubmitter posts submissions to a backend RPC endpoint. It is called
// exactly once per checkout; the backend client never retries POSTs.
type RPCSubmitter struct {
	Client   *backend.Client
	Function string
}

// Submit sends {"p_order": sub} and reads the created order reference. The
// RPC may answer with a single object or a one-row array.
func (s *RPCSubmitter) Submit(ctx context.Context, sub Submission) (Ack, error) {
	fn := strings.TrimSpace(s.Function)
	if fn == "" {
		fn = DefaultFunction
	}
	var raw json.RawMessage
	err := s.Client.Do(ctx, http.MethodPost, "/rest/v1/rpc/"+fn, nil, map[string]any{"p_order": sub}, &raw)
	if err != nil {
		return Ack{}, submissionError(err)
	}
	ack, err := decodeAck(raw)
	if err != nil {
		return Ack{}, &SubmissionError{Reason: "unreadable order acknowledgement", Err: err}
	}
	if ack.OrderID == "" && ack.OrderNumber == "" {
		return Ack{}, &SubmissionError{Reason: "order service returned no order reference"}
	}
	return ack, nil
}

func submissionError(err error) error {
	var be *backend.Error
	if errors.As(err, &be) {
		reason := be.Message
		if reason == "" {
			reason = be.Details
		}
		if reason == "" {
			reason = http.StatusText(be.Status)
		}
		return &SubmissionError{Reason: reason, Status: be.Status, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &SubmissionError{Reason: "order submission interrupted", Err: err}
	}
	return &SubmissionError{Reason: "order service unreachable", Err: err}
}

type ackRow struct {
	ID     json.RawMessage `json:"order_id"`
	Number json.RawMessage `json:"order_number"`
}

func decodeAck(raw json.RawMessage) (Ack, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Ack{}, nil
	}
	var row ackRow
	if raw[0] == '[' {
		var rows []ackRow
		if err := json.Unmarshal(raw, &rows); err != nil {
			return Ack{}, err
		}
		if len(rows) == 0 {
			return Ack{}, nil
		}
		row = rows[0]
	} else if err := json.Unmarshal(raw, &row); err != nil {
		return Ack{}, err
	}
	return Ack{OrderID: scalar(row.ID), OrderNumber: scalar(row.Number)}, nil
}

// scalar renders a JSON string or number as text.
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
