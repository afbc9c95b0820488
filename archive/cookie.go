package archive

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Netscape cookie-file support. The archive's Python tooling saves
// sessions as MozillaCookieJar files; this reader/writer keeps the two
// interoperable.

const netscapeHeader = "# Netscape HTTP Cookie File"

const httpOnlyPrefix = "#HttpOnly_"

// LoadCookies parses a Netscape-format cookie file.
func LoadCookies(path string) ([]*http.Cookie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cookie file: %w", err)
	}
	defer file.Close()

	var cookies []*http.Cookie

	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookie file line %d: expected 7 fields, got %d", lineNo, len(fields))
		}

		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cookie file line %d: bad expiry %q: %w", lineNo, fields[4], err)
		}

		cookie := http.Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		}
		if expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}

		cookies = append(cookies, &cookie)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning cookie file: %w", err)
	}

	return cookies, nil
}

// SaveCookies writes cookies to path in Netscape format, overwriting
// any existing file.
func SaveCookies(path string, cookies []*http.Cookie) error {
	var b strings.Builder
	b.WriteString(netscapeHeader + "\n")
	b.WriteString("# https://curl.se/docs/http-cookies.html\n\n")

	for _, c := range cookies {
		domain := c.Domain

		includeSubdomains := "FALSE"
		if strings.HasPrefix(domain, ".") {
			includeSubdomains = "TRUE"
		}

		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}

		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}

		prefix := ""
		if c.HttpOnly {
			prefix = httpOnlyPrefix
		}

		fmt.Fprintf(&b, "%s%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			prefix, domain, includeSubdomains, c.Path, secure, expires, c.Name, c.Value)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("writing cookie file: %w", err)
	}

	return nil
}
