package rules

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-access/internal/quiz"
)

// subnet only admits clients from the configured addresses. Entries may be
// a CIDR block ("10.0.0.0/8"), a single address, a dotted prefix
// ("192.168." or "192.168") or a last-octet range ("10.1.2.10-20").
type subnet struct {
	base
	matchers []func(netip.Addr) bool
	clientIP string
}

func newSubnet(c Context) (Rule, error) {
	if len(c.Quiz.Subnets) == 0 {
		return nil, nil
	}
	r := subnet{base: base{KindSubnet}, clientIP: c.Env.ClientIP}
	for _, s := range c.Quiz.Subnets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		m, err := parseSubnet(s)
		if err != nil {
			return nil, fmt.Errorf("subnet %q: %w", s, err)
		}
		r.matchers = append(r.matchers, m)
	}
	if len(r.matchers) == 0 {
		return nil, nil
	}
	return r, nil
}

func parseSubnet(s string) (func(netip.Addr) bool, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		p = p.Masked()
		return func(a netip.Addr) bool { return p.Contains(a) }, nil
	}
	if i := strings.LastIndex(s, "-"); i > 0 {
		lo, err := netip.ParseAddr(s[:i])
		if err != nil || !lo.Is4() {
			return nil, fmt.Errorf("range must start with an IPv4 address")
		}
		end, err := strconv.Atoi(s[i+1:])
		if err != nil || end < 0 || end > 255 {
			return nil, fmt.Errorf("range end must be an octet")
		}
		lb := lo.As4()
		if end < int(lb[3]) {
			return nil, fmt.Errorf("range end before start")
		}
		return func(a netip.Addr) bool {
			if !a.Is4() {
				return false
			}
			b := a.As4()
			return b[0] == lb[0] && b[1] == lb[1] && b[2] == lb[2] && b[3] >= lb[3] && int(b[3]) <= end
		}, nil
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return func(c netip.Addr) bool { return c == a }, nil
	}
	// dotted IPv4 prefix
	prefix := strings.TrimSuffix(s, ".")
	parts := strings.Split(prefix, ".")
	if len(parts) > 3 {
		return nil, fmt.Errorf("not an address, prefix or range")
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("not an address, prefix or range")
		}
	}
	return func(a netip.Addr) bool {
		return a.Is4() && strings.HasPrefix(a.String()+".", prefix+".")
	}, nil
}

func (r subnet) PreventAccess() []string {
	if a, err := netip.ParseAddr(strings.TrimSpace(r.clientIP)); err == nil {
		a = a.Unmap()
		for _, m := range r.matchers {
			if m(a) {
				return nil
			}
		}
	}
	return []string{"This quiz is only accessible from certain locations, and this computer is not on the allowed list."}
}

// password requires the quiz password with the request.
type password struct {
	base
	hash     []byte
	supplied string
}

func newPassword(c Context) (Rule, error) {
	if c.Quiz.PasswordHash == "" {
		return nil, nil
	}
	if _, err := bcrypt.Cost([]byte(c.Quiz.PasswordHash)); err != nil {
		return nil, fmt.Errorf("password_hash is not a bcrypt hash")
	}
	return password{base: base{KindPassword}, hash: []byte(c.Quiz.PasswordHash), supplied: c.Env.Password}, nil
}

func (password) Describe() []string {
	return []string{"To attempt this quiz you need to know the quiz password"}
}

// PreventAccess checks the password sent with the view request itself
// (X-Quiz-Password over HTTP); without it the start button is withheld.
func (r password) PreventAccess() []string {
	if r.supplied == "" {
		return []string{"Please enter the quiz password"}
	}
	if bcrypt.CompareHashAndPassword(r.hash, []byte(r.supplied)) != nil {
		return []string{"The password entered was incorrect"}
	}
	return nil
}

// secureWindow needs a client that can run the attempt in a locked,
// JavaScript-driven window.
type secureWindow struct {
	base
	javascript bool
}

func newSecureWindow(c Context) (Rule, error) {
	if c.Quiz.BrowserSecurity != quiz.BrowserSecuritySecure {
		return nil, nil
	}
	return secureWindow{base: base{KindSecureWindow}, javascript: c.Env.JavaScript}, nil
}

func (secureWindow) Describe() []string {
	return []string{"This quiz must be attempted in a secure window with JavaScript enabled."}
}

func (r secureWindow) PreventAccess() []string {
	if !r.javascript {
		return []string{"Your web browser must have JavaScript enabled to continue."}
	}
	return nil
}

// safeBrowser admits only the Safe Exam Browser, recognised by its
// user-agent token.
type safeBrowser struct {
	base
	userAgent string
}

func newSafeBrowser(c Context) (Rule, error) {
	if c.Quiz.BrowserSecurity != quiz.BrowserSecuritySafeBrowser {
		return nil, nil
	}
	return safeBrowser{base: base{KindSafeBrowser}, userAgent: c.Env.UserAgent}, nil
}

func (safeBrowser) Describe() []string {
	return []string{"This quiz has been configured so that students may only attempt it using the Safe Exam Browser."}
}

func (r safeBrowser) PreventAccess() []string {
	if !strings.Contains(r.userAgent, "SEB") {
		return []string{"This quiz has been configured so that it may only be attempted using the Safe Exam Browser."}
	}
	return nil
}

// prerequisite requires other activities to be completed first.
type prerequisite struct {
	base
	required  []string
	completed map[string]bool
}

func newPrerequisite(c Context) (Rule, error) {
	var req []string
	for _, id := range c.Quiz.Prerequisites {
		if id = strings.TrimSpace(id); id != "" {
			req = append(req, id)
		}
	}
	if len(req) == 0 {
		return nil, nil
	}
	return prerequisite{base: base{KindPrerequisite}, required: req, completed: c.Env.Completed}, nil
}

func (r prerequisite) Describe() []string {
	return []string{"This quiz requires completion of: " + strings.Join(r.required, ", ")}
}

func (r prerequisite) PreventAccess() []string {
	var out []string
	for _, id := range r.required {
		if !r.completed[id] {
			out = append(out, fmt.Sprintf("You must complete %q before attempting this quiz.", id))
		}
	}
	return out
}
