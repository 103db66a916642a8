package handlers

import (
	"net/http"

	"github.com/Dosada05/association-portal/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(s services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: s}
}

// ListMine godoc
// @Summary Заявки членов моей ассоциации
// @Tags registrations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Неавторизован"
// @Router /registrations [get]
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	q, sess := caller(r)
	registrations, err := h.registrationService.ListMine(r.Context(), q, sess)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Register godoc
// @Summary Заявить члена ассоциации на соревнование
// @Tags registrations
// @Accept json
// @Produce json
// @Param input body services.RegistrationInput true "Соревнование, участник и вес"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации / регистрация закрыта"
// @Failure 404 {object} map[string]string "Участник или соревнование не найдены"
// @Failure 409 {object} map[string]string "Уже заявлен"
// @Router /registrations [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	registration, err := h.registrationService.Register(r.Context(), q, sess, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
