package handler

import (
	"chatflow/internal/app/ai"
	"chatflow/internal/app/chat"
	"chatflow/internal/app/presence"
	"chatflow/internal/app/storage"
	"chatflow/internal/app/store"
	"chatflow/internal/configs"
	"chatflow/internal/pkg/gate"
)

type AppDeps struct {
	Hub            *chat.Hub
	Config         *configs.AppConfig
	Store          *store.MessageStore
	StorageService storage.StorageService
	Presence       *presence.Tracker
	AI             ai.TextGenerator
	Gate           *gate.Gate
}
