package conversation

import (
	"context"
	"errors"
	"fmt"

	"elgchat/internal/domain"
	"elgchat/internal/protocol/senderkey"
	"elgchat/internal/services/identity"
)

// Receive fetches up to limit queued envelopes (0 for all), decrypts each one
// independently and acknowledges the whole fetched batch.
//
// A message that cannot be decrypted, whose conversation is unknown or whose
// sender is not a participant is returned with Unreadable set; it is still
// acknowledged so it does not block the queue. Transport and storage errors
// abort before the ack so nothing is lost.
//
// Bulk messages of one conversation are decrypted together with a single
// sender key.
func (s *Service) Receive(
	ctx context.Context,
	sess *identity.Session,
	limit int,
) ([]domain.DecryptedMessage, error) {
	if err := check(sess); err != nil {
		return nil, err
	}
	envs, err := s.relay.FetchMessages(ctx, sess.ParticipantID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	if len(envs) == 0 {
		return nil, nil
	}

	out := make([]domain.DecryptedMessage, len(envs))
	bulk := make(map[domain.ConversationID][]int)
	resolved := make(map[domain.ConversationID]*domain.Conversation)

	for i, env := range envs {
		p := env.Payload
		out[i] = domain.DecryptedMessage{
			ConversationID: p.ConversationID,
			From:           p.SenderID,
			Direct:         p.IsDirect(),
			Timestamp:      p.Timestamp,
		}

		conv, err := s.resolve(ctx, sess, p.ConversationID, resolved)
		if err != nil {
			return nil, err
		}
		switch {
		case env.Type != domain.EnvelopeTypeMessage:
			s.unreadable(&out[i], "unsupported envelope type")
		case conv == nil:
			s.unreadable(&out[i], "unknown conversation")
		case !conv.HasParticipant(p.SenderID) || p.SenderID == sess.ParticipantID:
			s.unreadable(&out[i], "sender is not a participant")
		case p.IsDirect():
			plain, err := senderkey.DecryptDirect(p.EncryptedContents, sess.ParticipantID, sess.Keys)
			if err != nil {
				s.unreadable(&out[i], err.Error())
				continue
			}
			out[i].Plaintext = plain
		default:
			bulk[conv.ID] = append(bulk[conv.ID], i)
		}
	}

	for id, idx := range bulk {
		key, err := s.senderKey(sess, *resolved[id])
		if err != nil {
			for _, i := range idx {
				s.unreadable(&out[i], err.Error())
			}
			continue
		}
		contents := make([]string, len(idx))
		for j, i := range idx {
			contents[j] = envs[i].Payload.Content
		}
		for j, r := range senderkey.DecryptBatch(key, contents) {
			i := idx[j]
			if r.Err != nil {
				s.unreadable(&out[i], r.Err.Error())
				continue
			}
			out[i].Plaintext = r.Plaintext
		}
	}

	if err := s.relay.AckMessages(ctx, sess.ParticipantID, len(envs)); err != nil {
		return out, fmt.Errorf("ack %d messages: %w", len(envs), err)
	}
	return out, nil
}

// resolve looks a conversation up once per Receive call. A nil result with a
// nil error means the conversation does not exist for this participant.
func (s *Service) resolve(
	ctx context.Context,
	sess *identity.Session,
	id domain.ConversationID,
	seen map[domain.ConversationID]*domain.Conversation,
) (*domain.Conversation, error) {
	if c, ok := seen[id]; ok {
		return c, nil
	}
	conv, err := s.conversation(ctx, sess, id)
	switch {
	case err == nil:
		seen[id] = &conv
		return &conv, nil
	case errors.Is(err, ErrUnknownConversation):
		seen[id] = nil
		return nil, nil
	default:
		return nil, err
	}
}

func (s *Service) unreadable(m *domain.DecryptedMessage, reason string) {
	m.Unreadable = true
	m.Plaintext = nil
	s.log.Warn().
		Str("conversation", m.ConversationID.String()).
		Str("from", m.From.String()).
		Str("reason", reason).
		Msg(domain.UnreadableText)
}
