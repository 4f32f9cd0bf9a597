package domain

import "strings"

// Notification is a push notification payload relayed to the host shell.
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Tag     string               `json:"tag,omitempty"`
	Data    map[string]string    `json:"data,omitempty"`
	Urgent  bool                 `json:"urgent,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// NotificationAction is a button attached to a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// TargetURL returns the navigation target for a notification click:
// the url entry of the data payload, or the application root.
func (n Notification) TargetURL() string {
	if u := n.Data["url"]; u != "" {
		return u
	}
	return "/"
}

// GenericNotification is the fallback used when a push payload cannot be
// decoded. The title is derived from the cache prefix.
func GenericNotification(prefix string) Notification {
	title := prefix
	if title == "" {
		title = "syncgate"
	}
	title = strings.ToUpper(title[:1]) + title[1:]
	return Notification{
		Title: title,
		Body:  "You have new activity.",
		Tag:   "general",
	}
}
