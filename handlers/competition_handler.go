package handlers

import (
	"net/http"

	"github.com/Dosada05/association-portal/services"
)

type CompetitionHandler struct {
	competitionService services.CompetitionService
	resultService      services.ResultService
}

func NewCompetitionHandler(cs services.CompetitionService, rs services.ResultService) *CompetitionHandler {
	return &CompetitionHandler{competitionService: cs, resultService: rs}
}

// ListUpcoming godoc
// @Summary Соревнования с открытой регистрацией
// @Tags competitions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /competitions [get]
func (h *CompetitionHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	q, _ := caller(r)
	competitions, err := h.competitionService.ListUpcoming(r.Context(), q)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": competitions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetCompetition godoc
// @Summary Соревнование по ID
// @Tags competitions
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /competitions/{competitionID} [get]
func (h *CompetitionHandler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, _ := caller(r)
	competition, err := h.competitionService.GetByID(r.Context(), q, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateCompetition godoc
// @Summary Создать соревнование
// @Tags competitions
// @Accept json
// @Produce json
// @Param input body services.CompetitionInput true "Данные соревнования"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Нужна роль admin"
// @Router /competitions [post]
func (h *CompetitionHandler) CreateCompetition(w http.ResponseWriter, r *http.Request) {
	var input services.CompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	competition, err := h.competitionService.Create(r.Context(), q, sess, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateCompetition godoc
// @Summary Изменить соревнование
// @Tags competitions
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body services.CompetitionInput true "Данные соревнования"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /competitions/{competitionID} [put]
func (h *CompetitionHandler) UpdateCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.CompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	competition, err := h.competitionService.Update(r.Context(), q, sess, competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteCompetition godoc
// @Summary Удалить соревнование
// @Tags competitions
// @Param competitionID path string true "Competition ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /competitions/{competitionID} [delete]
func (h *CompetitionHandler) DeleteCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	if err := h.competitionService.Delete(r.Context(), q, sess, competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListResults godoc
// @Summary Результаты соревнования по пулам
// @Tags results
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Router /competitions/{competitionID}/results [get]
func (h *CompetitionHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, _ := caller(r)
	results, err := h.resultService.List(r.Context(), q, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordResult godoc
// @Summary Записать результат пула
// @Tags results
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body services.ResultInput true "Пул и места"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string "Результат уже записан"
// @Router /competitions/{competitionID}/results [post]
func (h *CompetitionHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	result, err := h.resultService.Record(r.Context(), q, sess, competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
