package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/association-portal/models"
)

func grade(s string) *string { return &s }

func TestDashboard_MemberRows(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, PageDashboard, DashboardPage{
		Email: "coach@club.test",
		State: models.DashboardState{
			Association: &models.Association{ID: "a1", Name: "Judo Club"},
			Members: []models.Member{
				{FirstName: "Ana", LastName: "Lopes", Type: models.MemberCoach},
				{FirstName: "Leo", LastName: "Martin", Type: models.MemberAdherent, Grade: grade("Brown belt")},
			},
			Competitions: []models.Competition{},
		},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "<strong>Ana Lopes</strong> <span>Coach</span>")
	assert.Contains(t, body, "<strong>Leo Martin</strong> <span>Adherent • Grade: Brown belt</span>")
	assert.Contains(t, body, "No upcoming competitions.")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestDashboard_NoAssociation(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, PageDashboard, DashboardPage{
		State: models.DashboardState{Members: []models.Member{}, Degraded: []string{"competitions"}},
	}))

	body := rec.Body.String()
	assert.Contains(t, body, "No association yet")
	assert.NotContains(t, body, "Members")
	assert.Contains(t, body, "Some data could not be loaded: competitions.")
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Error(t, r.Render(httptest.NewRecorder(), http.StatusOK, "nope.html", nil))
}

func TestNoticeText(t *testing.T) {
	assert.Equal(t, "You have been signed out.", NoticeText("signed_out"))
	assert.Equal(t, "custom", NoticeText("custom"))
}

func TestLayout_LiveScriptReconnectsWithPath(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, PageLogin, LoginPage{}))

	body := rec.Body.String()
	assert.Contains(t, body, `"/ws?path=" + encodeURIComponent(location.pathname)`)
	assert.Contains(t, body, "ws.onclose")
	assert.Contains(t, body, "setTimeout(connect, delay)")
}
