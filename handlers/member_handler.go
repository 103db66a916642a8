package handlers

import (
	"net/http"

	"github.com/Dosada05/association-portal/services"
)

type MemberHandler struct {
	memberService services.MemberService
}

func NewMemberHandler(s services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: s}
}

// ListMembers godoc
// @Summary Члены моей ассоциации
// @Tags members
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Неавторизован"
// @Router /members [get]
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	q, sess := caller(r)
	members, err := h.memberService.List(r.Context(), q, sess)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateMember godoc
// @Summary Добавить члена ассоциации
// @Tags members
// @Accept json
// @Produce json
// @Param input body services.MemberInput true "Данные участника"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации / нет ассоциации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Router /members [post]
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var input services.MemberInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	member, err := h.memberService.Create(r.Context(), q, sess, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMember godoc
// @Summary Изменить члена ассоциации
// @Tags members
// @Accept json
// @Produce json
// @Param memberID path string true "Member ID"
// @Param input body services.MemberInput true "Данные участника"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /members/{memberID} [put]
func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := getIDFromURL(r, "memberID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.MemberInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	member, err := h.memberService.Update(r.Context(), q, sess, memberID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteMember godoc
// @Summary Удалить члена ассоциации
// @Tags members
// @Param memberID path string true "Member ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /members/{memberID} [delete]
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := getIDFromURL(r, "memberID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q, sess := caller(r)
	if err := h.memberService.Delete(r.Context(), q, sess, memberID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
