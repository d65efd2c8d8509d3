// Package domain declares the concrete list kinds of the workflow app and
// wires each one to the generic scoped-list engine with its key paths.
package domain

import (
	"log/slog"

	"shotlist/internal/docstore"
	"shotlist/internal/list"
)

// List kind tags, also the final key-path segment of every scope.
const (
	KindTasks   = "tasks"
	KindKit     = "kit"
	KindVendors = "vendors"
)

func paths(kind string) list.Config {
	return list.Config{
		ListType: kind,
		TemplatePath: func() docstore.KeyPath {
			return docstore.KeyPath{"templates", kind}
		},
		UserPath: func(userID string) docstore.KeyPath {
			return docstore.KeyPath{"users", userID, "lists", kind}
		},
		ProjectPath: func(projectID string) docstore.KeyPath {
			return docstore.KeyPath{"projects", projectID, "lists", kind}
		},
	}
}

// NewTaskRepository builds the engine for shoot-day task checklists.
func NewTaskRepository(store docstore.Store, log *slog.Logger) *list.Repository[TaskItem, *TaskItem] {
	return list.NewRepository[TaskItem, *TaskItem](store, log, paths(KindTasks))
}

// NewKitRepository builds the engine for camera-kit packing lists.
func NewKitRepository(store docstore.Store, log *slog.Logger) *list.Repository[KitItem, *KitItem] {
	return list.NewRepository[KitItem, *KitItem](store, log, paths(KindKit))
}

// NewVendorRepository builds the engine for event vendor contact lists.
func NewVendorRepository(store docstore.Store, log *slog.Logger) *list.Repository[VendorItem, *VendorItem] {
	return list.NewRepository[VendorItem, *VendorItem](store, log, paths(KindVendors))
}
