package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/association-portal/services"
)

type AssociationHandler struct {
	associationService services.AssociationService
}

func NewAssociationHandler(s services.AssociationService) *AssociationHandler {
	return &AssociationHandler{associationService: s}
}

// GetMine godoc
// @Summary Моя ассоциация
// @Tags association
// @Produce json
// @Success 200 {object} map[string]interface{} "association (null, если ещё не создана)"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Router /association [get]
func (h *AssociationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	q, sess := caller(r)
	association, err := h.associationService.Mine(r.Context(), q, sess)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"association": association}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PutMine godoc
// @Summary Создать или переименовать ассоциацию
// @Tags association
// @Accept json
// @Produce json
// @Param input body object true "{\"name\": \"...\"}"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Router /association [put]
func (h *AssociationHandler) PutMine(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	association, err := h.associationService.UpsertMine(r.Context(), q, sess, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"association": association}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadLogo godoc
// @Summary Загрузить логотип ассоциации
// @Tags association
// @Accept multipart/form-data
// @Produce json
// @Param logo formData file true "PNG, JPEG, WebP или SVG, до 2 МБ"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string "Файл слишком большой"
// @Failure 415 {object} map[string]string "Неподдерживаемый тип файла"
// @Failure 501 {object} map[string]string "Хранилище не настроено"
// @Router /association/logo [post]
func (h *AssociationHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxLogoSize+64<<10)
	if err := r.ParseMultipartForm(services.MaxLogoSize); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			mapServiceErrorToHTTP(w, r, services.ErrFileTooLarge)
			return
		}
		badRequestResponse(w, r, errors.New("expected a multipart form with a logo file"))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("missing logo file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	q, sess := caller(r)
	association, err := h.associationService.UploadLogo(r.Context(), q, sess, strings.TrimSpace(contentType), header.Size, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"association": association}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
