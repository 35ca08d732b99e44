package wa

import (
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// ParsedMessage is a normalized inbound message ready for ingestion.
type ParsedMessage struct {
	MsgID       string
	ChatJID     types.JID
	SenderJID   types.JID
	SenderName  string
	Body        string
	MediaType   string
	QuotedMsgID string
	FromMe      bool
	IsGroup     bool
	Timestamp   int64
}

// ParseMessage normalizes a live whatsmeow message event.
func ParseMessage(evt *events.Message) *ParsedMessage {
	return &ParsedMessage{
		MsgID:       evt.Info.ID,
		ChatJID:     evt.Info.Chat,
		SenderJID:   evt.Info.Sender,
		SenderName:  evt.Info.PushName,
		Body:        extractTextBody(evt.Message),
		MediaType:   detectMediaType(evt.Message),
		QuotedMsgID: extractQuotedID(evt.Message),
		FromMe:      evt.Info.IsFromMe,
		IsGroup:     evt.Info.Chat.Server == types.GroupServer,
		Timestamp:   evt.Info.Timestamp.UnixMilli(),
	}
}

// HasContent reports whether the message carries anything worth
// persisting. Protocol and reaction chatter is dropped upstream.
func (p *ParsedMessage) HasContent() bool {
	return p.Body != "" || p.MediaType != "chat"
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	// Media captions double as the message body.
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

func detectMediaType(msg *waE2E.Message) string {
	if msg == nil {
		return "chat"
	}
	switch {
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	case msg.GetContactMessage() != nil:
		return "vcard"
	case msg.GetLocationMessage() != nil:
		return "location"
	default:
		return "chat"
	}
}

func extractQuotedID(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetContextInfo().GetStanzaID()
	}
	return ""
}

// phoneNumber extracts the bare number portion of a JID, which is the
// stable contact key.
func phoneNumber(jid types.JID) string {
	return strings.TrimSpace(jid.ToNonAD().User)
}
