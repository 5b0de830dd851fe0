package evolution

import (
	"encoding/json"
	"strings"

	"github.com/AzielCF/az-wabridge/domains/gateway"
)

// Evolution API responses vary between versions. Each decoder tries the
// known shapes in a fixed order and falls back to an empty value.

func decodeSendResult(body []byte) gateway.SendResult {
	var resp struct {
		Key struct {
			ID string `json:"id"`
		} `json:"key"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return gateway.SendResult{}
	}
	return gateway.SendResult{MessageID: resp.Key.ID, Status: resp.Status}
}

func decodeMediaBase64(body []byte) string {
	var resp struct {
		Base64 string          `json:"base64"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	if resp.Base64 != "" {
		return resp.Base64
	}
	var data string
	if len(resp.Data) > 0 && json.Unmarshal(resp.Data, &data) == nil {
		return data
	}
	return ""
}

func decodeConnectionState(body []byte) string {
	var resp struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.Instance.State != "" {
			return resp.Instance.State
		}
		if resp.State != "" {
			return resp.State
		}
	}
	return "unknown"
}

func decodeProfilePictureURL(body []byte) string {
	var resp struct {
		ProfilePictureURL string `json:"profilePictureUrl"`
		Picture           string `json:"picture"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	if resp.ProfilePictureURL != "" {
		return resp.ProfilePictureURL
	}
	return resp.Picture
}

type rawGroup struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

func decodeGroups(body []byte) []gateway.Group {
	var list []rawGroup
	if err := json.Unmarshal(body, &list); err != nil {
		var wrapped struct {
			Groups []rawGroup `json:"groups"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return []gateway.Group{}
		}
		list = wrapped.Groups
	}

	groups := make([]gateway.Group, 0, len(list))
	for _, g := range list {
		jid := strings.TrimSpace(g.ID)
		if jid == "" {
			continue
		}
		subject := g.Subject
		if subject == "" {
			subject = g.Name
		}
		if subject == "" {
			subject = gateway.UnknownGroupSubject
		}
		groups = append(groups, gateway.Group{JID: jid, Subject: subject})
	}
	return groups
}
