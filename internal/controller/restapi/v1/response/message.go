package response

import (
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

type CreateImageMessage struct {
	ID              string    `json:"id"`
	ConversationKey string    `json:"conversation_key"`
	ReceiverID      string    `json:"receiver_id"`
	MimeType        string    `json:"mime_type"`
	Size            int64     `json:"size"`
	State           string    `json:"state"`
	Preview         string    `json:"preview"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewCreateImageMessage(rec *entity.MediaRecord) CreateImageMessage {
	return CreateImageMessage{
		ID:              rec.ID.String(),
		ConversationKey: rec.ConversationKey.String(),
		ReceiverID:      rec.ReceiverID,
		MimeType:        rec.SniffedFormat.MimeType(),
		Size:            rec.PayloadSize,
		State:           string(rec.State),
		Preview:         rec.Preview,
		CreatedAt:       rec.CreatedAt,
	}
}

// Message is dto.ClientMedia on the wire. Payload is base64 encoded by encoding/json.
type Message = dto.ClientMedia

type ViewWindow = dto.ViewWindow
