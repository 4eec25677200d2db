// SPDX-License-Identifier: Apache-2.0

package domain

import "time"

type AppStatus string

const (
	AppDraft     AppStatus = "draft"
	AppPublished AppStatus = "published"
	AppArchived  AppStatus = "archived"
)

type CreateAppParams struct {
	Name        string
	Description string
	Slug        string
}

// AppConfiguration is the stored builder document. Only Workflow matters to
// execution; the rest is kept verbatim for the builder UI.
type AppConfiguration struct {
	Workflow []Component    `json:"workflow"`
	Settings map[string]any `json:"settings,omitempty"`
}

type App struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Slug          string            `json:"slug,omitempty"`
	Status        AppStatus         `json:"status"`
	Configuration *AppConfiguration `json:"configuration,omitempty"`
	PublishedAt   *time.Time        `json:"published_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
