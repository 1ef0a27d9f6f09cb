// Package cookiejar connects a fiber request to the gotrue cookie session.
package cookiejar

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evalboard/evalboard/internal/gotrue"
)

// Jar reads the request cookies of c and queues response cookies until Apply.
// Queued cookies are visible to GetAll, so a refreshed session set earlier
// in the request is read back by later calls.
type Jar struct {
	c       *fiber.Ctx
	pending []gotrue.Cookie
	applied int
}

var _ gotrue.CookieJar = (*Jar)(nil)

const localsKey = "cookiejar"

// New returns a Jar for c.
func New(c *fiber.Ctx) *Jar {
	return &Jar{c: c}
}

// From returns the Jar kept on c by Keep, or a new one.
func From(c *fiber.Ctx) *Jar {
	if j, ok := c.Locals(localsKey).(*Jar); ok {
		return j
	}

	return New(c)
}

// Keep stores j on its request, so later handlers see the cookies it queued.
func (j *Jar) Keep() {
	j.c.Locals(localsKey, j)
}

// GetAll implements gotrue.CookieJar.
func (j *Jar) GetAll() []gotrue.Cookie {
	var (
		out   []gotrue.Cookie
		index = make(map[string]int)
	)

	j.c.Request().Header.VisitAllCookie(func(key, value []byte) {
		index[string(key)] = len(out)
		out = append(out, gotrue.Cookie{Name: string(key), Value: string(value)})
	})

	for _, p := range j.pending {
		i, ok := index[p.Name]

		switch {
		case p.MaxAge < 0 && ok:
			out[i].Value = ""
		case p.MaxAge < 0:
		case ok:
			out[i].Value = p.Value
		default:
			index[p.Name] = len(out)
			out = append(out, gotrue.Cookie{Name: p.Name, Value: p.Value})
		}
	}

	// deleted cookies keep their slot above, drop them here
	live := out[:0]

	for _, c := range out {
		if c.Value != "" {
			live = append(live, c)
		}
	}

	return live
}

// SetAll implements gotrue.CookieJar.
func (j *Jar) SetAll(cookies []gotrue.Cookie) {
	j.pending = append(j.pending, cookies...)
}

// Pending returns the cookies queued so far.
func (j *Jar) Pending() []gotrue.Cookie {
	return j.pending
}

// Apply writes the cookies queued since the last Apply to the response.
func (j *Jar) Apply() {
	for _, p := range j.pending[j.applied:] {
		j.c.Cookie(toFiber(p))
	}

	j.applied = len(j.pending)
}

func toFiber(p gotrue.Cookie) *fiber.Cookie {
	c := &fiber.Cookie{
		Name:     p.Name,
		Value:    p.Value,
		Path:     p.Path,
		Domain:   p.Domain,
		MaxAge:   p.MaxAge,
		Secure:   p.Secure,
		HTTPOnly: p.HTTPOnly,
		SameSite: p.SameSite,
	}

	// fasthttp only writes positive max-age values
	if p.MaxAge < 0 {
		c.MaxAge = 0
		c.Value = ""
		c.Expires = time.Unix(0, 0).UTC()
	}

	return c
}
