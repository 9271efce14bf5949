package audit

import "strings"

// MaskEmail reduce una dirección a su primer carácter de usuario y de
// dominio: "ana@example.com" queda "a…@e….com".
func MaskEmail(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		return "***"
	}

	user, domain := addr[:at], addr[at+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	parts := strings.Split(domain, ".")
	if len(parts[0]) > 1 {
		parts[0] = parts[0][:1] + "…"
	}
	return user + "@" + strings.Join(parts, ".")
}
