package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
)

const SignatureHeader = "X-Hub-Signature-256"

// VerifySignature checks an X-Hub-Signature-256 header ("sha256=<hex>")
// against the HMAC-SHA256 of body under appSecret.
func VerifySignature(body []byte, header, appSecret string) bool {
	sig := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []rawMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type rawMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Button struct {
		Text string `json:"text"`
	} `json:"button"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// ParseWebhook extracts inbound user messages. Status callbacks carry no
// messages and yield an empty slice. Button and list replies are reported as
// text with the reply title.
func ParseWebhook(body []byte) ([]models.InboundMessage, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode whatsapp webhook: %w", err)
	}

	var out []models.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			name := ""
			if len(change.Value.Contacts) > 0 {
				name = change.Value.Contacts[0].Profile.Name
			}
			for _, m := range change.Value.Messages {
				out = append(out, toInbound(m, name))
			}
		}
	}
	return out, nil
}

func toInbound(m rawMessage, name string) models.InboundMessage {
	msg := models.InboundMessage{
		ID:   m.ID,
		From: m.From,
		Name: name,
		Type: m.Type,
	}
	if secs, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
		msg.Timestamp = time.Unix(secs, 0).UTC()
	}

	switch m.Type {
	case "text":
		msg.Text = m.Text.Body
	case "button":
		msg.Type = "text"
		msg.Text = m.Button.Text
	case "interactive":
		switch m.Interactive.Type {
		case "button_reply":
			msg.Type = "text"
			msg.Text = m.Interactive.ButtonReply.Title
		case "list_reply":
			msg.Type = "text"
			msg.Text = m.Interactive.ListReply.Title
		}
	}
	return msg
}
