package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote-service/internal/app"
	"github.com/jsamuelsen/daily-quote-service/internal/domain"
)

// QuoteHandler serves the daily quote and the quote catalog.
type QuoteHandler struct {
	service *app.DailyQuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.DailyQuoteService) *QuoteHandler {
	return &QuoteHandler{
		service: service,
	}
}

// DailyQuoteResponse is the quote of the day.
type DailyQuoteResponse struct {
	Quote  string `json:"quote"`
	Date   string `json:"date"`
	Source string `json:"source"`
}

// QuoteResponse carries a single quote.
type QuoteResponse struct {
	Quote string `json:"quote"`
}

// DatedQuoteResponse is the quote assigned to a given calendar date.
// Date is always YYYY-MM-DD.
type DatedQuoteResponse struct {
	Quote     string `json:"quote"`
	Date      string `json:"date"`
	DayOfYear int    `json:"dayOfYear"`
}

// CatalogEntryResponse is one catalog entry with its position.
type CatalogEntryResponse struct {
	Index int    `json:"index"`
	Quote string `json:"quote"`
}

// forDateQuery holds the query parameters of GET /quotes/for-date.
type forDateQuery struct {
	Date string `form:"date" validate:"required,isodate"`
}

// indexURI holds the path parameter of GET /quotes/:index. Negative and
// too-large values pass validation and come back as 404 from the catalog.
type indexURI struct {
	Index string `uri:"index" validate:"required,integer"`
}

func toDailyQuoteResponse(q *domain.DailyQuote) *DailyQuoteResponse {
	return &DailyQuoteResponse{
		Quote:  q.Text,
		Date:   q.DateKey,
		Source: string(q.Source),
	}
}

// GetDailyQuote handles GET /api/v1/quotes/daily.
// Always answers 200: storage problems fall back to an uncached quote.
//
// @Summary Get the quote of the day
// @Tags quotes
// @Produce json
// @Success 200 {object} DailyQuoteResponse
// @Router /api/v1/quotes/daily [get]
func (h *QuoteHandler) GetDailyQuote(c *gin.Context) {
	quote := h.service.Today(c.Request.Context())

	c.JSON(http.StatusOK, toDailyQuoteResponse(quote))
}

// GetRandomQuote handles GET /api/v1/quotes/random.
//
// @Summary Get a random catalog quote
// @Tags quotes
// @Produce json
// @Success 200 {object} QuoteResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	c.JSON(http.StatusOK, QuoteResponse{Quote: h.service.Random(c.Request.Context())})
}

// GetQuoteForDate handles GET /api/v1/quotes/for-date?date=YYYY-MM-DD.
//
// @Summary Get the quote assigned to a calendar date
// @Tags quotes
// @Produce json
// @Param date query string true "Calendar date, YYYY-MM-DD"
// @Success 200 {object} DatedQuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/for-date [get]
func (h *QuoteHandler) GetQuoteForDate(c *gin.Context) {
	var query forDateQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	date, err := h.service.ParseDate(query.Date)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	quote, dayOfYear := h.service.ForDate(c.Request.Context(), date)

	c.JSON(http.StatusOK, DatedQuoteResponse{
		Quote:     quote,
		Date:      date.Format(time.DateOnly),
		DayOfYear: dayOfYear,
	})
}

// ListQuotes handles GET /api/v1/quotes?limit=&cursor=.
//
// @Summary List the quote catalog
// @Tags quotes
// @Produce json
// @Param limit query int false "Page size (1-100)"
// @Param cursor query string false "Cursor from a previous page"
// @Success 200 {object} dto.PaginatedResponse[CatalogEntryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	offset, err := page.Offset()
	if err != nil {
		dto.HandleError(c, domain.NewValidationError("cursor", err.Error()))
		return
	}

	quotes := h.service.Catalog().Quotes()
	entries := make([]CatalogEntryResponse, len(quotes))

	for i, q := range quotes {
		entries[i] = CatalogEntryResponse{Index: i, Quote: q}
	}

	c.JSON(http.StatusOK, dto.Paginate(entries, offset, page.GetLimit()))
}

// GetQuoteByIndex handles GET /api/v1/quotes/:index.
//
// @Summary Get a catalog entry by index
// @Tags quotes
// @Produce json
// @Param index path int true "Zero-based catalog index"
// @Success 200 {object} CatalogEntryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{index} [get]
func (h *QuoteHandler) GetQuoteByIndex(c *gin.Context) {
	var uri indexURI
	if err := dto.BindURIAndValidate(c, &uri); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	// The integer tag guarantees this parses.
	index, _ := strconv.Atoi(uri.Index)

	quote, err := h.service.Catalog().At(index)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, CatalogEntryResponse{Index: index, Quote: quote})
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.GET("/daily", h.GetDailyQuote)
	quotes.GET("/random", h.GetRandomQuote)
	quotes.GET("/for-date", h.GetQuoteForDate)
	quotes.GET("/:index", h.GetQuoteByIndex)
}
