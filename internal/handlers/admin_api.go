package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

type AdminAPIHandler struct {
	db *gorm.DB
}

func NewAdminAPIHandler(db *gorm.DB) *AdminAPIHandler {
	return &AdminAPIHandler{db: db}
}

// ListPayments returns payments with optional status filtering, newest first
func (h *AdminAPIHandler) ListPayments(c echo.Context) error {
	// Parse query parameters
	filterStatus := c.QueryParam("status")
	page, pageSize := parsePagination(c)

	query := h.db.Model(&models.Payment{}).Preload("User")
	if filterStatus != "" {
		query = query.Where("status = ?", filterStatus)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count payments")
	}
	page, totalPages, offset := paginate(page, pageSize, totalCount)

	var payments []models.Payment
	if err := query.Order("id desc").Limit(pageSize).Offset(offset).Find(&payments).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch payments")
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items:      payments,
		TotalCount: totalCount,
		Page:       page,
		TotalPages: totalPages,
	})
}

// ListGrants returns invite grants, optionally only the ones still valid
func (h *AdminAPIHandler) ListGrants(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	page, pageSize := parsePagination(c)

	query := h.db.Model(&models.InviteGrant{}).Preload("User")
	if activeOnly {
		query = query.Where("expires_at > ?", time.Now())
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count grants")
	}
	page, totalPages, offset := paginate(page, pageSize, totalCount)

	var grants []models.InviteGrant
	if err := query.Order("id desc").Limit(pageSize).Offset(offset).Find(&grants).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch grants")
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items:      grants,
		TotalCount: totalCount,
		Page:       page,
		TotalPages: totalPages,
	})
}

// ListTickets returns support tickets, open ones by default
func (h *AdminAPIHandler) ListTickets(c echo.Context) error {
	filterStatus := c.QueryParam("status")
	if filterStatus == "" {
		filterStatus = string(models.SupportTicketStatusOpen)
	}
	page, pageSize := parsePagination(c)

	query := h.db.Model(&models.SupportTicket{})
	if filterStatus != "all" {
		query = query.Where("status = ?", filterStatus)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count tickets")
	}
	page, totalPages, offset := paginate(page, pageSize, totalCount)

	var tickets []models.SupportTicket
	if err := query.Order("id desc").Limit(pageSize).Offset(offset).Find(&tickets).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch tickets")
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items:      tickets,
		TotalCount: totalCount,
		Page:       page,
		TotalPages: totalPages,
	})
}

// GetUser returns one user with payments and grants by Telegram id
func (h *AdminAPIHandler) GetUser(c echo.Context) error {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid telegram id")
	}

	var user models.User
	err = h.db.Preload("Payments").Preload("InviteGrants").
		Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch user")
	}

	return c.JSON(http.StatusOK, user)
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize = 20
	if ps, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}
	return page, pageSize
}

func paginate(page, pageSize int, totalCount int64) (clampedPage, totalPages, offset int) {
	totalPages = int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages, (page - 1) * pageSize
}
