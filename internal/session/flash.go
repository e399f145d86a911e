package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookieName holds pending notices between a redirect and the next page.
const FlashCookieName = "flash"

// Flash categories, matching the CSS classes used by the templates.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// Flash is a one-time notice shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// AddFlash queues f for the next page view.
func AddFlash(w http.ResponseWriter, r *http.Request, f Flash) {
	flashes := append(readFlashes(r), f)
	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	value := base64.RawURLEncoding.EncodeToString(data)
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Keep the request in sync so a second AddFlash in the same handler appends.
	r.Header.Set("Cookie", replaceCookie(r, FlashCookieName, value))
}

// PopFlashes returns the queued notices and clears them.
func PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := readFlashes(r)
	if len(flashes) == 0 {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return flashes
}

func readFlashes(r *http.Request) []Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}

func replaceCookie(r *http.Request, name, value string) string {
	header := (&http.Cookie{Name: name, Value: value}).String()
	for _, c := range r.Cookies() {
		if c.Name == name {
			continue
		}
		header += "; " + (&http.Cookie{Name: c.Name, Value: c.Value}).String()
	}
	return header
}
