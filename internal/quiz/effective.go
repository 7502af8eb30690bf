package quiz

import "time"

// EffectiveAccess returns a copy of q with overrides applied. A user override
// wins outright for every field it sets. Group overrides fill the remaining
// fields, combined in the user's favour: earliest open, latest close, longest
// time limit, most attempts (0 meaning unlimited beats any number), and any
// group password.
func EffectiveAccess(q Quiz, user *AccessOverride, groups []AccessOverride) Quiz {
	out := q
	merged := mergeGroups(groups)
	if user != nil {
		merged = layer(merged, *user)
	}

	if merged.TimeOpen != nil {
		t := *merged.TimeOpen
		out.TimeOpen = &t
	}
	if merged.TimeClose != nil {
		t := *merged.TimeClose
		out.TimeClose = &t
	}
	if merged.TimeLimit != nil {
		out.TimeLimit = *merged.TimeLimit
	}
	if merged.Attempts != nil {
		out.MaxAttempts = *merged.Attempts
	}
	if merged.Password != nil {
		out.PasswordHash = *merged.Password
	}
	// slices are shared with q otherwise; copy so callers can't alias
	out.Subnets = append([]string(nil), q.Subnets...)
	out.Prerequisites = append([]string(nil), q.Prerequisites...)
	out.Questions = append([]string(nil), q.Questions...)
	return out
}

// layer puts every field set in top over base.
func layer(base, top AccessOverride) AccessOverride {
	if top.TimeOpen != nil {
		base.TimeOpen = top.TimeOpen
	}
	if top.TimeClose != nil {
		base.TimeClose = top.TimeClose
	}
	if top.TimeLimit != nil {
		base.TimeLimit = top.TimeLimit
	}
	if top.Attempts != nil {
		base.Attempts = top.Attempts
	}
	if top.Password != nil {
		base.Password = top.Password
	}
	return base
}

func mergeGroups(groups []AccessOverride) AccessOverride {
	var m AccessOverride
	for _, g := range groups {
		if g.TimeOpen != nil && (m.TimeOpen == nil || g.TimeOpen.Before(*m.TimeOpen)) {
			m.TimeOpen = g.TimeOpen
		}
		if g.TimeClose != nil && (m.TimeClose == nil || g.TimeClose.After(*m.TimeClose)) {
			m.TimeClose = g.TimeClose
		}
		if g.TimeLimit != nil && (m.TimeLimit == nil || longerLimit(*g.TimeLimit, *m.TimeLimit)) {
			m.TimeLimit = g.TimeLimit
		}
		if g.Attempts != nil && (m.Attempts == nil || moreAttempts(*g.Attempts, *m.Attempts)) {
			m.Attempts = g.Attempts
		}
		if g.Password != nil && m.Password == nil {
			m.Password = g.Password
		}
	}
	return m
}

// a zero time limit means no limit at all
func longerLimit(a, b time.Duration) bool {
	if b == 0 {
		return false
	}
	return a == 0 || a > b
}

func moreAttempts(a, b int) bool {
	if b == 0 {
		return false
	}
	return a == 0 || a > b
}
