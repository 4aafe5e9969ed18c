package estimate

import "github.com/google/uuid"

type SheetCreatedEvent struct {
	Result Sheet
}

type SheetRenamedEvent struct {
	SheetID uuid.UUID
	Name    string
}

type SheetDeletedEvent struct {
	SheetID uuid.UUID
}

type PolicyMigratedEvent struct {
	SheetID    uuid.UUID
	Policy     string
	Recomputed int
}

type HeaderCreatedEvent struct {
	Result Header
}

type HeaderMovedEvent struct {
	HeaderID  uuid.UUID
	SortOrder int
}

type HeaderRenamedEvent struct {
	HeaderID uuid.UUID
	Name     string
}

type HeaderDeletedEvent struct {
	HeaderID     uuid.UUID
	ItemsDeleted int
}

type LineItemCreatedEvent struct {
	Result LineItem
}

type LineItemUpdatedEvent struct {
	Result LineItem
}

type LineItemMovedEvent struct {
	LineItemID uuid.UUID
	SortOrder  int
}

type LineItemDeletedEvent struct {
	LineItemID uuid.UUID
}

type SheetImportedEvent struct {
	SheetID        uuid.UUID
	HeadersCreated int
	ItemsCreated   int
	GroupsFailed   int
}
