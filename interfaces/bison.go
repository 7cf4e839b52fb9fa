package interfaces

import (
	"context"
)

// BisonClient talks to one Email Bison instance, scoped by the API key it
// was built with. Shared-credential clients must call SwitchWorkspace before
// listing; dedicated-credential clients are already scoped.
type BisonClient interface {
	SwitchWorkspace(ctx context.Context, workspaceID int) error
	ListSenderEmails(ctx context.Context, page, perPage int) (*BisonSenderEmailPage, error)
}

// BisonClientFactory builds a client for a workspace credential. The empty
// string selects the shared fallback API key.
type BisonClientFactory interface {
	ClientForAPIKey(apiKey string) BisonClient
	Instance() string
}

type BisonTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type BisonSenderEmail struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	Status              string     `json:"status"`
	Tags                []BisonTag `json:"tags"`
	EmailsSent          int64      `json:"emails_sent"`
	UniqueRepliedCount  int64      `json:"unique_replied_count"`
	BouncedCount        int64      `json:"bounced_count"`
	UnsubscribedCount   int64      `json:"unsubscribed_count"`
	OpenedCount         int64      `json:"opened_count"`
	TotalLeadsContacted int64      `json:"total_leads_contacted"`
	DailyLimit          int        `json:"daily_limit"`
}

type BisonPageLinks struct {
	Next *string `json:"next"`
}

type BisonPageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

type BisonSenderEmailPage struct {
	Data  []BisonSenderEmail `json:"data"`
	Links BisonPageLinks     `json:"links"`
	Meta  BisonPageMeta      `json:"meta"`
}
