package memory

import (
	"context"
	"errors"
	"testing"

	"smart-quiz-service/internal/domain"
)

func sampleQuestion(categoryID int64, text string) domain.Question {
	return domain.Question{
		CategoryID:    categoryID,
		Text:          text,
		OptionA:       "a",
		OptionB:       "b",
		OptionC:       "c",
		OptionD:       "d",
		CorrectAnswer: "A",
	}
}

func TestCategoryNameIsUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.CreateCategory(ctx, domain.Category{Name: "Math"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := store.CreateCategory(ctx, domain.Category{Name: "Math"})
	if !errors.Is(err, domain.ErrConstraint) {
		t.Fatalf("expected constraint error, got %v", err)
	}

	other, err := store.CreateCategory(ctx, domain.Category{Name: "Science"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other.Name = "Math"
	if _, err := store.UpdateCategory(ctx, other); !errors.Is(err, domain.ErrConstraint) {
		t.Fatalf("expected constraint error on rename, got %v", err)
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	category, err := store.CreateCategory(ctx, domain.Category{Name: "Math"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	question, err := store.CreateQuestion(ctx, sampleQuestion(category.ID, "1+1?"))
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	if err := store.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetCategory(ctx, category.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected category gone, got %v", err)
	}
	if _, err := store.GetQuestion(ctx, question.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cascaded question gone, got %v", err)
	}
}

func TestQuestionRequiresExistingCategory(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.CreateQuestion(ctx, sampleQuestion(99, "orphan?"))
	if !errors.Is(err, domain.ErrConstraint) {
		t.Fatalf("expected constraint error, got %v", err)
	}
}

func TestListQuestionsStableOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	category, err := store.CreateCategory(ctx, domain.Category{Name: "Math"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	texts := []string{"first?", "second?", "third?"}
	for _, text := range texts {
		if _, err := store.CreateQuestion(ctx, sampleQuestion(category.ID, text)); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	listed, err := store.ListQuestions(ctx, category.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(listed))
	}
	for i, q := range listed {
		if q.Text != texts[i] {
			t.Fatalf("expected stable insert order, got %v", listed)
		}
	}

	limited, err := store.ListQuestions(ctx, category.ID, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].Text != "first?" {
		t.Fatalf("expected first two questions, got %v", limited)
	}
}

func TestListResultsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	category, _ := store.CreateCategory(ctx, domain.Category{Name: "Math"})
	other, _ := store.CreateCategory(ctx, domain.Category{Name: "Science"})

	insert := func(user string, categoryID int64, score int) {
		_, err := store.InsertResult(ctx, domain.Result{
			UserName: user, CategoryID: categoryID, Score: score,
			CorrectCount: 1, WrongCount: 1, TotalQuestions: 2,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	insert("Alice", category.ID, 50)
	insert("Alice", other.ID, 100)
	insert("Bob", category.ID, 0)

	byCategory, _ := store.ListResults(ctx, domain.ResultFilter{CategoryID: category.ID})
	if len(byCategory) != 2 {
		t.Fatalf("expected 2 results for category, got %d", len(byCategory))
	}
	byUser, _ := store.ListResults(ctx, domain.ResultFilter{UserName: "Alice"})
	if len(byUser) != 2 {
		t.Fatalf("expected 2 results for Alice, got %d", len(byUser))
	}
	both, _ := store.ListResults(ctx, domain.ResultFilter{UserName: "Alice", CategoryID: other.ID})
	if len(both) != 1 || both[0].Score != 100 {
		t.Fatalf("expected Alice's science result, got %v", both)
	}
}
