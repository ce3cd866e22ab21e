package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cinesync/server/internal/repository/party"
)

// messages are capped per party; older entries fall off the tail
const messagesLimit = 200

func (r repo) getMessagesKey(partyID string) string {
	return "party:" + partyID + ":messages"
}

func (r repo) AddMessage(ctx context.Context, params *party.AddMessageParams) error {
	data, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	messagesKey := r.getMessagesKey(params.PartyID)
	pipe := r.rc.TxPipeline()
	pipe.LPush(ctx, messagesKey, data)
	pipe.LTrim(ctx, messagesKey, 0, messagesLimit-1)
	pipe.Expire(ctx, messagesKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	return nil
}

// GetMessages returns the stored history in chronological order.
func (r repo) GetMessages(ctx context.Context, partyID string) ([]party.Message, error) {
	raw, err := r.rc.LRange(ctx, r.getMessagesKey(partyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]party.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg party.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

func (r repo) RemoveMessages(ctx context.Context, partyID string) error {
	if err := r.rc.Del(ctx, r.getMessagesKey(partyID)).Err(); err != nil {
		return fmt.Errorf("failed to remove messages: %w", err)
	}

	return nil
}
