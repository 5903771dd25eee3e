package core

import (
	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// ScanResult summarises a catalogue build.
type ScanResult struct {
	Root      string   `json:"root"`
	Folders   int      `json:"folders"`
	Medias    int      `json:"medias"`
	Playlists int      `json:"playlists"`
	Elapsed   string   `json:"elapsed"`
	Warnings  []string `json:"warnings"`
}

// HierarchyResult wraps the hierarchy document.
type HierarchyResult struct {
	library.Hierarchy
}

// StatusResult wraps a persisted session document; Path is where it was read.
type StatusResult struct {
	Path   string    `json:"path"`
	Status hw.Status `json:"status"`
}

// CtlResult holds the broadcasts received after a ctl command.
type CtlResult struct {
	Sent     string   `json:"sent"`
	Received []string `json:"received"`
}
