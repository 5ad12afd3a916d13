package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fathima-sithara/tours-service/internal/domain"
)

var resetTokenRe = regexp.MustCompile(`[0-9a-f]{64}`)

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func signupBody() map[string]string {
	return map[string]string{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "pass12345",
		"passwordConfirm": "pass12345",
	}
}

func signupAndToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/signup", signupBody()))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignup(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{})

	resp, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/signup", signupBody()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pass12345")
	assert.NotContains(t, string(raw), "\"password\"")

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["token"])
}

func TestSignupDuplicate(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{})

	_ = signupAndToken(t, app)
	resp, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/signup", signupBody()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "fail", decode(t, resp)["status"])
}

func TestLoginFailureEnvelope(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{})
	_ = signupAndToken(t, app)

	wrongPw, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"email": "ada@example.com", "password": "nope12345"}))
	require.NoError(t, err)
	noUser, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"email": "ghost@example.com", "password": "nope12345"}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, wrongPw.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, noUser.StatusCode)
	assert.Equal(t, decode(t, wrongPw)["message"], decode(t, noUser)["message"])
}

func TestProtectGatesRequests(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{})
	token := signupAndToken(t, app)

	// No token.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Mangled header.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid token.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	_, hasPassword := user["password"]
	assert.False(t, hasPassword)
}

func TestRestrictToBlocksByRole(t *testing.T) {
	app, userRepo, _, _ := newTestApp(&memTourRepo{})
	token := signupAndToken(t, app)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Promote and retry.
	users, err := userRepo.List(nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	userRepo.setRole(users[0].ID, domain.RoleAdmin)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListToursQueryPipeline(t *testing.T) {
	tourRepo := &memTourRepo{total: 9, tours: []domain.Tour{{Name: "The Forest Hiker", Difficulty: "easy"}}}
	app, _, _, _ := newTestApp(tourRepo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/v1/tours?difficulty=easy&duration[gte]=5&sort=-price&limit=2&page=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["results"])

	assert.Equal(t, "easy", tourRepo.lastFilter["difficulty"])
	assert.Equal(t, int64(2), *tourRepo.lastOpts.Limit)
	assert.Equal(t, int64(0), *tourRepo.lastOpts.Skip)
}

func TestListToursPageOutOfRange(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{total: 3})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/tours?page=5&limit=10", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "fail", decode(t, resp)["status"])
}

func TestListToursRejectsOperatorInjection(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{total: 3})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/tours?price[regex]=x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTopFiveCheapAlias(t *testing.T) {
	tourRepo := &memTourRepo{total: 20}
	app, _, _, _ := newTestApp(tourRepo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/tours/top-5-cheap", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int64(5), *tourRepo.lastOpts.Limit)
	sort, ok := tourRepo.lastOpts.Sort.(bson.D)
	require.True(t, ok)
	require.Len(t, sort, 2)
	assert.Equal(t, "ratingsAverage", sort[0].Key)
	assert.Equal(t, -1, sort[0].Value)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	app, _, mailer, _ := newTestApp(&memTourRepo{})
	_ = signupAndToken(t, app)

	resp, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/forgotPassword",
		map[string]string{"email": "ada@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, mailer.sent, 1)

	raw := resetTokenRe.FindString(mailer.sent[0])
	require.NotEmpty(t, raw)

	resp, err = app.Test(jsonReq(t, http.MethodPatch, "/api/v1/users/resetPassword/"+raw,
		map[string]string{"password": "newpass123", "passwordConfirm": "newpass123"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode(t, resp)["token"])

	// Old password is gone, new password works.
	resp, err = app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"email": "ada@example.com", "password": "newpass123"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForgotPasswordUnknownEmailAnswersSuccess(t *testing.T) {
	app, _, mailer, _ := newTestApp(&memTourRepo{})

	resp, err := app.Test(jsonReq(t, http.MethodPost, "/api/v1/users/forgotPassword",
		map[string]string{"email": "ghost@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, mailer.sent)
}

func TestUpdateMyPasswordInvalidatesOldToken(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{})
	oldToken := signupAndToken(t, app)

	req := jsonReq(t, http.MethodPatch, "/api/v1/users/updateMyPassword", map[string]string{
		"currentPassword": "pass12345",
		"newPassword":     "newpass123",
		"passwordConfirm": "newpass123",
	})
	req.Header.Set("Authorization", "Bearer "+oldToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	newToken, _ := decode(t, resp)["token"].(string)
	require.NotEmpty(t, newToken)

	// The fresh token keeps working.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+newToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnmatchedRouteEnvelope(t *testing.T) {
	app, _, _, _ := newTestApp(&memTourRepo{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "fail", body["status"])
	assert.NotEmpty(t, body["message"])
}
