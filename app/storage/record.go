package storage

import (
	"encoding/json"
	"log/slog"

	"prdchat/app/model"
)

// record is the store-facing shape of a session: the transcript travels as JSON text
// and an absent continuation handle as the empty string.
type record struct {
	PartitionKey      string `json:"partition_key"`
	RowKey            string `json:"row_key"`
	Name              string `json:"name"`
	Messages          string `json:"messages"`
	LastResponseID    string `json:"last_response_id"`
	LatestPRDMarkdown string `json:"latest_prd_markdown"`
}

func toRecord(s *model.Session) (record, error) {
	messages, err := encodeMessages(s.Messages)
	if err != nil {
		return record{}, err
	}

	return record{
		PartitionKey:      PartitionKey,
		RowKey:            s.ID,
		Name:              s.Name,
		Messages:          messages,
		LastResponseID:    s.LastResponseID,
		LatestPRDMarkdown: s.Document,
	}, nil
}

func (r record) toSession() *model.Session {
	return &model.Session{
		ID:             r.RowKey,
		Name:           r.Name,
		Messages:       decodeMessages(r.RowKey, r.Messages),
		LastResponseID: r.LastResponseID,
		Document:       r.LatestPRDMarkdown,
	}
}

// apply replaces the non-nil fields of the update. The stored transcript text is only
// rewritten when the update carries messages.
func (r record) apply(update model.SessionUpdate) (record, error) {
	if update.Name != nil {
		r.Name = *update.Name
	}
	if update.Messages != nil {
		messages, err := encodeMessages(update.Messages)
		if err != nil {
			return record{}, err
		}
		r.Messages = messages
	}
	if update.LastResponseID != nil {
		r.LastResponseID = *update.LastResponseID
	}
	if update.Document != nil {
		r.LatestPRDMarkdown = *update.Document
	}

	return r, nil
}

func encodeMessages(messages []model.Message) (string, error) {
	if messages == nil {
		messages = []model.Message{}
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// decodeMessages never fails: a corrupt transcript reads back as empty.
func decodeMessages(id, data string) []model.Message {
	messages := []model.Message{}
	if data == "" {
		return messages
	}

	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		slog.Error("Failed to decode stored transcript", "chat_id", id, "error", err)
		return []model.Message{}
	}

	return messages
}
