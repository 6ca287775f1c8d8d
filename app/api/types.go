package api

import (
	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
	"github.com/Fuyucch1/Vinted-Notifications/app/sinks"
)

type Handler struct {
	searchRepo    database.SearchRepository
	itemRepo      database.ItemRepository
	settingRepo   database.SettingRepository
	allowlistRepo database.AllowlistRepository
	dispatcher    *pipeline.Dispatcher
	rssSink       *sinks.RSSSink
}
