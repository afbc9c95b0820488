package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// loginReply is the JSON body of the login endpoint.
type loginReply struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Token  string `json:"token"`
}

// LoginError is a credential rejection by the archive.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	return "Failed to login: " + e.Message
}

// Login validates the user against the archive's account service.
//
// On success the returned session token is retained in memory for the
// lifetime of this Archive, and — when cookiePath is non-empty — the
// session cookies are saved to a Netscape-format cookie file for use
// by later sessions.
func (a *Archive) Login(ctx context.Context, userid, password, cookiePath string) error {
	if userid == "" || password == "" {
		return fmt.Errorf("userid and password are required")
	}

	loginURL := a.endpoint("NeidAPI/nph-neidLogin.py")
	loginURL.RawQuery = url.Values{
		"userid":   {userid},
		"password": {password},
	}.Encode()

	req, err := a.httpc.Request(ctx, loginURL, http.MethodGet)
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}

	resp, err := a.httpc.Exchange(req)
	if err != nil {
		return fmt.Errorf("submitting login: %w", err)
	}
	defer resp.Body.Close()

	var reply loginReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decoding login reply: %w", err)
	}

	if reply.Status != "ok" {
		return &LoginError{Message: reply.Msg}
	}

	a.token = reply.Token
	a.cookies = resp.Cookies()

	if cookiePath != "" {
		if err := SaveCookies(cookiePath, a.cookies); err != nil {
			return fmt.Errorf("saving cookie file: %w", err)
		}
	}

	a.logger.Info("login successful", "userid", userid, "cookie_file", cookiePath)

	return nil
}
