package database

import "commung/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Community{},
		&models.Profile{},
		&models.Membership{},
		&models.Application{},
		&models.Board{},
		&models.BoardPost{},
		&models.Reply{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageReaction{},
		&models.Notification{},
		&models.Bot{},
		&models.BotToken{},
	}
}
