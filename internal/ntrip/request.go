package ntrip

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// buildRequest produces the full handshake request sent to the caster:
//
//	GET /<mountpoint> HTTP/1.1
//	User-Agent: <agent>
//	Authorization: Basic <base64(user:pass)>
//
// terminated by a blank line.
func buildRequest(mountpoint, username, password, userAgent string) string {
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))

	var b strings.Builder
	fmt.Fprintf(&b, "GET /%s HTTP/1.1\r\n", mountpoint)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	fmt.Fprintf(&b, "Authorization: Basic %s\r\n", auth)
	b.WriteString("\r\n")
	return b.String()
}
