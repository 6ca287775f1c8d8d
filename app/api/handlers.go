package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
	"github.com/Fuyucch1/Vinted-Notifications/app/sinks"
	"github.com/Fuyucch1/Vinted-Notifications/app/vinted"
	"github.com/gin-gonic/gin"
)

func NewHandler(searchRepo database.SearchRepository, itemRepo database.ItemRepository,
	settingRepo database.SettingRepository, allowlistRepo database.AllowlistRepository,
	dispatcher *pipeline.Dispatcher, rssSink *sinks.RSSSink) *Handler {
	return &Handler{
		searchRepo:    searchRepo,
		itemRepo:      itemRepo,
		settingRepo:   settingRepo,
		allowlistRepo: allowlistRepo,
		dispatcher:    dispatcher,
		rssSink:       rssSink,
	}
}

func (h *Handler) GetRSS(c *gin.Context) {
	enabled, _ := h.settingRepo.Get("rss_enabled")
	if enabled != "true" {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, h.rssSink.Render())
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if searchCount, err := h.searchRepo.GetSearchCount(); err == nil {
		health["searches"] = searchCount
	}

	health["sinks"] = h.dispatcher.RegisteredSinks()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if searchCount, err := h.searchRepo.GetSearchCount(); err == nil {
		stats["search_count"] = searchCount
	}
	if itemCount, err := h.itemRepo.GetItemCount(); err == nil {
		stats["item_count"] = itemCount
	}
	if perDay, err := h.itemRepo.GetItemsPerDay(); err == nil {
		stats["items_per_day"] = perDay
	}
	if last, err := h.itemRepo.GetLastFoundItem(); err == nil && last != nil {
		stats["last_item"] = map[string]interface{}{
			"title":     last.Title,
			"url":       last.URL,
			"timestamp": last.Timestamp,
		}
	}
	stats["sinks"] = h.dispatcher.RegisteredSinks()

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSearches(c *gin.Context) {
	searches, err := h.searchRepo.GetSearches()
	if err != nil {
		slog.Error("Database error", "operation", "list_searches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	payload := make([]map[string]interface{}, 0, len(searches))
	for _, search := range searches {
		payload = append(payload, searchInfo(search))
	}

	c.JSON(http.StatusOK, gin.H{
		"searches": payload,
		"total":    len(payload),
	})
}

func (h *Handler) APIGetSearch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	search, err := h.searchRepo.GetSearch(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_search", "search_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if search == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Search not found"})
		return
	}

	c.JSON(http.StatusOK, searchInfo(*search))
}

func (h *Handler) APIAddSearch(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid query field"})
		return
	}

	normalized, err := vinted.NormalizeQuery(req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query URL", "details": err.Error()})
		return
	}

	id, err := h.searchRepo.AddSearch(normalized, req.Name)
	if errors.Is(err, database.ErrDuplicateSearch) {
		c.JSON(http.StatusConflict, gin.H{"error": "An equivalent search already exists"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "add_search", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    id,
		"query": normalized,
		"name":  req.Name,
	})
}

func (h *Handler) APIUpdateSearch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Name    *string `json:"name"`
		Enabled *bool   `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == nil && req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	search, err := h.searchRepo.GetSearch(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_search", "search_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if search == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Search not found"})
		return
	}

	if req.Name != nil {
		if err := h.searchRepo.UpdateSearchName(id, *req.Name); err != nil {
			slog.Error("Database error", "operation", "update_search_name", "search_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	}
	if req.Enabled != nil {
		if err := h.searchRepo.SetSearchEnabled(id, *req.Enabled); err != nil {
			slog.Error("Database error", "operation", "set_search_enabled", "search_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIDeleteSearch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	search, err := h.searchRepo.GetSearch(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_search", "search_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if search == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Search not found"})
		return
	}

	if err := h.searchRepo.DeleteSearch(id); err != nil {
		slog.Error("Database error", "operation", "delete_search", "search_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIDeleteAllSearches(c *gin.Context) {
	if err := h.searchRepo.DeleteAllSearches(); err != nil {
		slog.Error("Database error", "operation", "delete_all_searches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIExportSearches(c *gin.Context) {
	searches, err := h.searchRepo.GetSearches()
	if err != nil {
		slog.Error("Database error", "operation", "export_searches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	payload := make([]map[string]string, 0, len(searches))
	for _, search := range searches {
		payload = append(payload, map[string]string{
			"query": search.Query,
			"name":  search.Name,
		})
	}

	c.Header("Content-Disposition", "attachment; filename=searches.json")
	c.JSON(http.StatusOK, gin.H{"searches": payload})
}

func (h *Handler) APIImportSearches(c *gin.Context) {
	var req struct {
		Searches []struct {
			Query string `json:"query"`
			Name  string `json:"name"`
		} `json:"searches" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid searches field"})
		return
	}

	added := 0
	skipped := 0
	failed := make([]string, 0)

	for _, entry := range req.Searches {
		normalized, err := vinted.NormalizeQuery(entry.Query)
		if err != nil {
			failed = append(failed, entry.Query)
			continue
		}

		_, err = h.searchRepo.AddSearch(normalized, entry.Name)
		if errors.Is(err, database.ErrDuplicateSearch) {
			skipped++
			continue
		}
		if err != nil {
			slog.Error("Database error", "operation", "import_search", "query", normalized, "error", err)
			failed = append(failed, entry.Query)
			continue
		}
		added++
	}

	c.JSON(http.StatusOK, gin.H{
		"added":   added,
		"skipped": skipped,
		"failed":  failed,
	})
}

func (h *Handler) APIListItems(c *gin.Context) {
	var searchID int64
	if raw := c.Query("search_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search_id parameter"})
			return
		}
		searchID = parsed
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	items, err := h.itemRepo.GetRecentItems(searchID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	payload := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		payload = append(payload, map[string]interface{}{
			"id":        item.ID,
			"search_id": item.SearchID,
			"title":     item.Title,
			"price":     item.Price,
			"currency":  item.Currency,
			"brand":     item.Brand,
			"url":       item.URL,
			"photo_url": item.PhotoURL,
			"timestamp": item.Timestamp,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": payload,
		"total": len(payload),
	})
}

func (h *Handler) APIGetAllowlist(c *gin.Context) {
	countries, err := h.allowlistRepo.GetAllowlist()
	if err != nil {
		slog.Error("Database error", "operation", "get_allowlist", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"countries": countries})
}

func (h *Handler) APIAddCountry(c *gin.Context) {
	var req struct {
		Country string `json:"country" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid country field"})
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Country))
	if len(code) != 2 || code == pipeline.CountryUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Country must be a 2-letter ISO code"})
		return
	}

	if err := h.allowlistRepo.AddCountry(code); err != nil {
		slog.Error("Database error", "operation", "add_country", "country", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"country": code})
}

func (h *Handler) APIRemoveCountry(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if len(code) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Country must be a 2-letter ISO code"})
		return
	}

	if err := h.allowlistRepo.RemoveCountry(code); err != nil {
		slog.Error("Database error", "operation", "remove_country", "country", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIClearAllowlist(c *gin.Context) {
	if err := h.allowlistRepo.ClearAllowlist(); err != nil {
		slog.Error("Database error", "operation", "clear_allowlist", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIGetSettings(c *gin.Context) {
	settings, err := h.settingRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// The bot token is a credential; it is write-only through the API.
	if _, ok := settings["telegram_token"]; ok {
		settings["telegram_token"] = "***"
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *Handler) APISetSetting(c *gin.Context) {
	key := c.Param("key")

	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	settings, err := h.settingRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if _, ok := settings[key]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown setting key"})
		return
	}

	if err := h.settingRepo.Set(key, req.Value); err != nil {
		slog.Error("Database error", "operation", "set_setting", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func searchInfo(search database.Search) map[string]interface{} {
	info := map[string]interface{}{
		"id":         search.ID,
		"query":      search.Query,
		"name":       search.Name,
		"enabled":    search.Enabled,
		"created_at": search.CreatedAt,
		"updated_at": search.UpdatedAt,
	}
	if search.LastItem != nil {
		info["last_item"] = *search.LastItem
	}
	return info
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search id"})
		return 0, false
	}
	return id, true
}
