// Package model defines the data structures used throughout the registry.
package model

import "time"

// Package is a published package. Downloads is maintained by the download
// endpoint, which lives outside this service.
type Package struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Downloads int64     `json:"downloads"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Version is one published release of a package.
type Version struct {
	ID          string    `json:"id"`
	PackageID   string    `json:"-"`
	PackageName string    `json:"crate"`
	Number      string    `json:"num"`
	CreatedAt   time.Time `json:"created_at"`
}
