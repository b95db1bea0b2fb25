package engine

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
)

// stateBlob is the serialized snapshot of a browser context's
// persistence-relevant state. The wire form is an opaque JSON blob owned by
// this package; nothing outside the engine interprets it.
type stateBlob struct {
	Cookies []*proto.NetworkCookieParam  `json:"cookies"`
	Origins map[string]map[string]string `json:"origins"`
}

func encodeState(s *stateBlob) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*stateBlob, error) {
	var s stateBlob
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return &s, nil
}

func decodeJSON(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}

// cookieParams converts captured cookies into the settable parameter form so
// a stored blob can seed a future context directly.
func cookieParams(cookies []*proto.NetworkCookie) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return out
}

// localStorageDumpJS returns {origin, items} for the current document.
const localStorageDumpJS = `() => {
	const items = {};
	try {
		for (let i = 0; i < localStorage.length; i++) {
			const k = localStorage.key(i);
			items[k] = localStorage.getItem(k);
		}
	} catch (e) {}
	return JSON.stringify({origin: location.origin, items});
}`

// storageRestoreScript builds an on-new-document script that repopulates
// localStorage for whichever stored origin the page lands on. Origins that
// never match are simply carried forward untouched.
func storageRestoreScript(origins map[string]map[string]string) (string, error) {
	data, err := json.Marshal(origins)
	if err != nil {
		return "", fmt.Errorf("failed to encode origin storage: %w", err)
	}
	return fmt.Sprintf(`(() => {
	const byOrigin = %s;
	const items = byOrigin[location.origin];
	if (!items) return;
	try {
		for (const [k, v] of Object.entries(items)) {
			localStorage.setItem(k, v);
		}
	} catch (e) {}
})()`, data), nil
}
