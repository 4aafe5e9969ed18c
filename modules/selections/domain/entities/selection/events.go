package selection

import "github.com/google/uuid"

type TemplateCreatedEvent struct {
	Result Template
}

type TemplateRenamedEvent struct {
	TemplateID uuid.UUID
	Name       string
}

type TemplateDeletedEvent struct {
	TemplateID uuid.UUID
}

type CategoryCreatedEvent struct {
	Result Category
}

type CategoryMovedEvent struct {
	CategoryID uuid.UUID
	Dimension  Dimension
	SortOrder  int
}

type CategoryRenamedEvent struct {
	CategoryID uuid.UUID
	Name       string
}

type CategoryDeletedEvent struct {
	CategoryID       uuid.UUID
	QuestionsDeleted int
}

type QuestionCreatedEvent struct {
	Result Question
}

type QuestionMovedEvent struct {
	QuestionID uuid.UUID
	SortOrder  int
}

type QuestionDeletedEvent struct {
	QuestionID uuid.UUID
}
