package authenticator

import (
	"net/http"

	"github.com/patric-chuzhbe/dietapi/internal/user"
)

type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	ResolveUser(request *http.Request) (*user.User, error)
	IssueSessionCookie(response http.ResponseWriter, sessionToken string)
	ExpireSessionCookie(response http.ResponseWriter)
}
