package commerce

import "strings"

// validEmail applies a structural check, not a full RFC parse: the goal is
// to divert obviously broken addresses before they burn a remote call.
func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.IndexByte(domain, '@') >= 0 {
		return false
	}
	dot := strings.LastIndexByte(domain, '.')

	return dot > 0 && dot < len(domain)-1
}
