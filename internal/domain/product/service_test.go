package product

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstore/store-api/internal/domain/validation"
)

// --- Mock implementations ---

type mockRepo struct {
	byID      map[int64]*Product
	nextID    int64
	count     int
	countErr  error
	searched  bool
	gotOffset int
	gotLimit  int
	gotSort   Sort
	page      []Product
	updateErr error
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{byID: map[int64]*Product{}, nextID: 100}
	for i := range products {
		m.byID[products[i].ID] = &products[i]
	}
	return m
}

func (m *mockRepo) Count(_ context.Context, _ Filter) (int, error) {
	return m.count, m.countErr
}

func (m *mockRepo) Search(_ context.Context, _ Filter, s Sort, offset, limit int) ([]Product, error) {
	m.searched = true
	m.gotSort = s
	m.gotOffset = offset
	m.gotLimit = limit
	return m.page, nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []int64) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

type mockImages struct {
	saved   []string
	deleted []string
}

func (m *mockImages) Save(_ context.Context, originalName string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	name := "img-" + originalName
	m.saved = append(m.saved, name)
	return name, nil
}

func (m *mockImages) Delete(_ context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	return nil
}

func validInput() Input {
	return Input{
		Name:     "Pixel",
		Brand:    "Google",
		Category: "Phones",
		Price:    decimal.RequireFromString("499.00"),
	}
}

func upload(name string) *Upload {
	return &Upload{Filename: name, Body: bytes.NewReader([]byte("png"))}
}

// --- Tests ---

func TestList_PagesFromFilteredCount(t *testing.T) {
	repo := newMockRepo()
	repo.count = 12
	repo.page = []Product{{ID: 7}, {ID: 6}}
	svc := NewService(repo, &mockImages{}, nil, 5)

	page, err := svc.List(context.Background(), Query{
		Sort: Sort{Key: SortByPrice, Dir: Asc},
		Page: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Window.TotalPages)
	assert.Equal(t, 12, page.Window.TotalCount)
	assert.Equal(t, 2, page.Window.Page)
	assert.Equal(t, 5, repo.gotOffset)
	assert.Equal(t, 5, repo.gotLimit)
	assert.Equal(t, Sort{Key: SortByPrice, Dir: Asc}, repo.gotSort)
	assert.Len(t, page.Products, 2)
}

func TestList_PageBelowOneClamped(t *testing.T) {
	repo := newMockRepo()
	repo.count = 3
	svc := NewService(repo, &mockImages{}, nil, 0)

	page, err := svc.List(context.Background(), Query{Page: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Window.Page)
	assert.Equal(t, 0, repo.gotOffset)
	assert.Equal(t, DefaultPageSize, repo.gotLimit)
}

func TestList_PastLastPageIsEmpty(t *testing.T) {
	repo := newMockRepo()
	repo.count = 6
	svc := NewService(repo, &mockImages{}, nil, 5)

	page, err := svc.List(context.Background(), Query{Page: 7})
	require.NoError(t, err)
	assert.False(t, repo.searched)
	assert.Empty(t, page.Products)
	assert.NotNil(t, page.Products)
	assert.Equal(t, 2, page.Window.TotalPages)
}

func TestList_EmptyCatalog(t *testing.T) {
	svc := NewService(newMockRepo(), &mockImages{}, nil, 5)

	page, err := svc.List(context.Background(), Query{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Window.TotalPages)
	assert.Empty(t, page.Products)
}

func TestList_CountError(t *testing.T) {
	repo := newMockRepo()
	repo.countErr = errors.New("db down")
	svc := NewService(repo, &mockImages{}, nil, 5)

	_, err := svc.List(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count products")
}

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	images := &mockImages{}
	svc := NewService(repo, images, nil, 5)

	p, err := svc.Create(context.Background(), validInput(), upload("a.png"))
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "img-a.png", p.ImageFilename)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, []string{"img-a.png"}, images.saved)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Input)
		image     *Upload
		wantField string
	}{
		{name: "unknown category", mutate: func(in *Input) { in.Category = "Toys" }, image: upload("a.png"), wantField: "Category"},
		{name: "category is case sensitive", mutate: func(in *Input) { in.Category = "phones" }, image: upload("a.png"), wantField: "Category"},
		{name: "missing name", mutate: func(in *Input) { in.Name = "  " }, image: upload("a.png"), wantField: "Name"},
		{name: "missing brand", mutate: func(in *Input) { in.Brand = "" }, image: upload("a.png"), wantField: "Brand"},
		{name: "negative price", mutate: func(in *Input) { in.Price = decimal.NewFromInt(-1) }, image: upload("a.png"), wantField: "Price"},
		{name: "missing image", mutate: func(*Input) {}, image: nil, wantField: "ImageFile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockRepo(), &mockImages{}, nil, 5)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in, tt.image)
			vErr, ok := validation.As(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestCreate_CustomCategories(t *testing.T) {
	svc := NewService(newMockRepo(), &mockImages{}, []string{"Drones"}, 5)
	in := validInput()
	in.Category = "Drones"

	_, err := svc.Create(context.Background(), in, upload("d.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Drones"}, svc.Categories())
}

func TestUpdate_ReplacesImage(t *testing.T) {
	repo := newMockRepo(Product{ID: 1, Name: "Old", Brand: "B", Category: "Other", ImageFilename: "old.png"})
	images := &mockImages{}
	svc := NewService(repo, images, nil, 5)

	p, err := svc.Update(context.Background(), 1, validInput(), upload("new.png"))
	require.NoError(t, err)
	assert.Equal(t, "Pixel", p.Name)
	assert.Equal(t, "img-new.png", p.ImageFilename)
	assert.Equal(t, []string{"old.png"}, images.deleted)
}

func TestUpdate_KeepsImageWhenNoneSent(t *testing.T) {
	repo := newMockRepo(Product{ID: 1, Name: "Old", Brand: "B", Category: "Other", ImageFilename: "old.png"})
	images := &mockImages{}
	svc := NewService(repo, images, nil, 5)

	p, err := svc.Update(context.Background(), 1, validInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, "old.png", p.ImageFilename)
	assert.Empty(t, images.deleted)
}

func TestUpdate_FailureDropsNewImage(t *testing.T) {
	repo := newMockRepo(Product{ID: 1, Name: "Old", Brand: "B", Category: "Other", ImageFilename: "old.png"})
	repo.updateErr = errors.New("write failed")
	images := &mockImages{}
	svc := NewService(repo, images, nil, 5)

	_, err := svc.Update(context.Background(), 1, validInput(), upload("new.png"))
	require.Error(t, err)
	assert.Equal(t, []string{"img-new.png"}, images.deleted)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), &mockImages{}, nil, 5)

	_, err := svc.Update(context.Background(), 42, validInput(), nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newMockRepo(Product{ID: 3, ImageFilename: "x.png"})
	images := &mockImages{}
	svc := NewService(repo, images, nil, 5)

	require.NoError(t, svc.Delete(context.Background(), 3))
	_, err := svc.Get(context.Background(), 3)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, slices.Contains(images.deleted, "x.png"))

	err = svc.Delete(context.Background(), 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCategoriesDefault(t *testing.T) {
	svc := NewService(newMockRepo(), &mockImages{}, nil, 5)
	assert.Equal(t, "Phones,Computers,Accessories,Printers,Cameras,Other", strings.Join(svc.Categories(), ","))
}
