package domain

import "time"

// VisibleAfter filters a conversation's history against a viewer's deletion
// watermark. Messages at or before the watermark stay hidden forever, even
// after the conversation is auto-restored for the viewer; a nil watermark
// means the viewer never soft-deleted the conversation and sees everything.
// The input order is preserved.
func VisibleAfter(msgs []*Message, watermark *time.Time) []*Message {
	if watermark == nil {
		return msgs
	}
	visible := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if m.CreatedAt.After(*watermark) {
			visible = append(visible, m)
		}
	}
	return visible
}
