package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	authmw "github.com/mind-engage/mindengage-access/internal/auth/middleware"
)

const guestCookie = "me_guest_id"

// GuestLoginHandler issues a guest token. A browser keeps the same guest id
// for 30 days through a cookie.
func GuestLoginHandler(a *authmw.AuthService) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := ""
		if c, err := r.Cookie(guestCookie); err == nil && strings.HasPrefix(c.Value, "guest|") {
			userID = c.Value
		}
		if userID == "" {
			userID = "guest|" + strconv.FormatInt(time.Now().UnixNano(), 36)
		}
		sfx := strings.TrimPrefix(userID, "guest|")
		if len(sfx) > 6 {
			sfx = sfx[len(sfx)-6:]
		}

		tok, err := a.IssueJWT(userID, "guest")
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     guestCookie,
			Value:    userID,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
			Expires:  time.Now().Add(30 * 24 * time.Hour),
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Username: "guest-" + sfx})
	}
}
