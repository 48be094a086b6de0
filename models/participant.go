package models

import "time"

// Participant is one side of a conversation as the messaging backend knows it.
type Participant struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Name      string    `bson:"name" json:"name"`
	FCMToken  string    `bson:"fcm_token,omitempty" json:"-"`
	Deleted   bool      `bson:"deleted" json:"deleted"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Conversation groups messages between exactly two participants.
type Conversation struct {
	ID           string    `bson:"id" json:"conversation_id"`
	Participants [2]string `bson:"participants" json:"participants"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Has reports whether userID takes part in the conversation.
func (c *Conversation) Has(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}
