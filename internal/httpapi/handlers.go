package httpapi

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/service"
	"github.com/Aman-CERP/choralmind/internal/synth"
)

// Hymnal is the service the handlers call.
type Hymnal interface {
	Retrieve(ctx context.Context, query string, lang hymn.Language, k int) ([]hymn.RetrievalResult, error)
	Ask(ctx context.Context, query string, lang hymn.Language) (*service.Answer, error)
	Hymn(ctx context.Context, lang hymn.Language, id int) (hymn.Record, error)
	Languages() []hymn.Language
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query    string `json:"query" validate:"required,max=500"`
	Language string `json:"language" validate:"required,oneof=english yoruba"`
	K        int    `json:"k" validate:"gte=0,lte=20"`
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Query    string `json:"query" validate:"required,max=500"`
	Language string `json:"language" validate:"required,oneof=english yoruba"`
}

// SearchResponse is returned by the search endpoint.
type SearchResponse struct {
	Query    string                 `json:"query"`
	Language string                 `json:"language"`
	Results  []hymn.RetrievalResult `json:"results"`
}

// AskResponse is returned by the ask endpoint.
type AskResponse struct {
	Query    string                 `json:"query"`
	Language string                 `json:"language"`
	Answer   string                 `json:"answer"`
	Matched  bool                   `json:"matched"`
	Results  []hymn.RetrievalResult `json:"results"`
}

// HymnResponse is returned by the hymn endpoint.
type HymnResponse struct {
	ID       int    `json:"id"`
	Language string `json:"language"`
	Number   int    `json:"number,omitempty"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
}

// Handler serves the hymn API.
type Handler struct {
	hymnal   Hymnal
	validate *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(h Hymnal) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Handler{hymnal: h, validate: v}
}

// HandleSearch returns the ranked chunks for a query.
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest
	}
	if err := h.validate.Struct(&req); err != nil {
		return newValidationError(err)
	}
	lang, err := hymn.ParseLanguage(req.Language)
	if err != nil {
		return errors.New(errors.ErrCodeUnknownLanguage, err.Error(), err)
	}

	results, err := h.hymnal.Retrieve(c.UserContext(), req.Query, lang, req.K)
	if err != nil {
		return err
	}
	return c.JSON(SearchResponse{Query: req.Query, Language: lang.String(), Results: results})
}

// HandleAsk returns the synthesized hymn for a query.
func (h *Handler) HandleAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest
	}
	if err := h.validate.Struct(&req); err != nil {
		return newValidationError(err)
	}
	lang, err := hymn.ParseLanguage(req.Language)
	if err != nil {
		return errors.New(errors.ErrCodeUnknownLanguage, err.Error(), err)
	}

	ans, err := h.hymnal.Ask(c.UserContext(), req.Query, lang)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeQueryEmpty) {
			return newFieldError("query", synth.EmptyQueryMessage)
		}
		return err
	}
	return c.JSON(AskResponse{
		Query:    ans.Query,
		Language: lang.String(),
		Answer:   ans.Text,
		Matched:  ans.Matched,
		Results:  ans.Results,
	})
}

// HandleHymn returns one full hymn.
func (h *Handler) HandleHymn(c *fiber.Ctx) error {
	lang, err := hymn.ParseLanguage(c.Params("language"))
	if err != nil {
		return errors.New(errors.ErrCodeUnknownLanguage, err.Error(), err)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id given")
	}

	rec, err := h.hymnal.Hymn(c.UserContext(), lang, id)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInvalidInput) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(HymnResponse{ID: rec.ID, Language: lang.String(), Number: rec.Number, Title: rec.Title, Text: rec.Text})
}

// HandleLanguages lists the searchable languages.
func (h *Handler) HandleLanguages(c *fiber.Ctx) error {
	langs := h.hymnal.Languages()
	out := make([]fiber.Map, 0, len(langs))
	for _, l := range langs {
		out = append(out, fiber.Map{"id": l.String(), "name": l.DisplayName()})
	}
	return c.JSON(fiber.Map{"languages": out})
}

// HandleHealthy reports liveness and how many languages are loaded.
func (h *Handler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok", "languages": len(h.hymnal.Languages())})
}

func newFieldError(field, msg string) error {
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: map[string]string{field: msg}}
}
