package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"humorpedia/internal/models"
	"humorpedia/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Мок-репозиторий разделов (заглушка над map)
type mockSectionRepo struct {
	sections map[string]*models.Section
	seq      int
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: make(map[string]*models.Section)}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func (m *mockSectionRepo) Insert(_ context.Context, s *models.Section) error {
	for _, ex := range m.sections {
		if ex.FullPath == s.FullPath {
			return uniqueViolation()
		}
		if ex.Slug == s.Slug && ptrEq(ex.ParentID, s.ParentID) {
			return uniqueViolation()
		}
	}
	cp := *s
	m.seq++
	cp.CreatedAt = cp.CreatedAt.Add(time.Duration(m.seq) * time.Millisecond)
	m.sections[cp.ID] = &cp
	return nil
}

func (m *mockSectionRepo) GetByID(_ context.Context, id string) (*models.Section, error) {
	s, ok := m.sections[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockSectionRepo) GetBySlug(_ context.Context, slug string) (*models.Section, error) {
	var matches []models.Section
	for _, s := range m.sections {
		if s.Slug == slug {
			matches = append(matches, *s)
		}
	}
	if len(matches) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Level != matches[j].Level {
			return matches[i].Level < matches[j].Level
		}
		if matches[i].Order != matches[j].Order {
			return matches[i].Order < matches[j].Order
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return &matches[0], nil
}

func (m *mockSectionRepo) GetByPath(_ context.Context, fullPath string) (*models.Section, error) {
	for _, s := range m.sections {
		if s.FullPath == fullPath {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockSectionRepo) SiblingSlugExists(_ context.Context, slug string, parentID *string) (bool, error) {
	for _, s := range m.sections {
		if s.Slug == slug && ptrEq(s.ParentID, parentID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSectionRepo) List(_ context.Context, f models.SectionFilter) ([]models.Section, int, error) {
	var out []models.Section
	for _, s := range m.sections {
		if f.RootsOnly && s.ParentID != nil {
			continue
		}
		if f.ParentID != nil && !ptrEq(s.ParentID, f.ParentID) {
			continue
		}
		if f.Level != nil && s.Level != *f.Level {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.InMainMenu != nil && s.InMainMenu != *f.InMainMenu {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *s)
	}
	sortSections(out)
	total := len(out)
	return page(out, f.Skip, f.Limit), total, nil
}

func (m *mockSectionRepo) ListAll(_ context.Context, status *string) ([]models.Section, error) {
	var out []models.Section
	for _, s := range m.sections {
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, *s)
	}
	sortSections(out)
	return out, nil
}

func (m *mockSectionRepo) ListChildren(ctx context.Context, parentID string, skip, limit int, status *string) ([]models.Section, int, error) {
	all, err := m.ChildrenOf(ctx, parentID)
	if err != nil {
		return nil, 0, err
	}
	if status != nil {
		var filtered []models.Section
		for _, s := range all {
			if s.Status == *status {
				filtered = append(filtered, s)
			}
		}
		all = filtered
	}
	return page(all, skip, limit), len(all), nil
}

func (m *mockSectionRepo) ChildrenOf(_ context.Context, parentID string) ([]models.Section, error) {
	var out []models.Section
	for _, s := range m.sections {
		if s.ParentID != nil && *s.ParentID == parentID {
			out = append(out, *s)
		}
	}
	sortSections(out)
	return out, nil
}

func (m *mockSectionRepo) CountChildren(_ context.Context, id string) (int, error) {
	n := 0
	for _, s := range m.sections {
		if s.ParentID != nil && *s.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockSectionRepo) Update(ctx context.Context, s *models.Section) error {
	return m.UpdateWithPaths(ctx, s, nil)
}

func (m *mockSectionRepo) UpdateWithPaths(_ context.Context, s *models.Section, paths []repository.PathUpdate) error {
	if _, ok := m.sections[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *s
	m.sections[cp.ID] = &cp
	for _, p := range paths {
		child, ok := m.sections[p.ID]
		if !ok {
			continue
		}
		child.FullPath = p.FullPath
		child.ParentPath = p.ParentPath
		child.Level = p.Level
	}
	return nil
}

func (m *mockSectionRepo) DeleteMany(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.sections, id)
	}
	return nil
}

func (m *mockSectionRepo) IncrementViews(_ context.Context, id string) error {
	if s, ok := m.sections[id]; ok {
		s.Views++
	}
	return nil
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sortSections(list []models.Section) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func page(list []models.Section, skip, limit int) []models.Section {
	if skip >= len(list) {
		return nil
	}
	list = list[skip:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// Заглушка реестра тегов: запоминает вызовы синка
type mockTagSync struct {
	synced [][]string
}

func (m *mockTagSync) SyncTags(_ context.Context, names []string) error {
	m.synced = append(m.synced, names)
	return nil
}
func (m *mockTagSync) Create(context.Context, models.CreateTagRequest) (*models.Tag, error) {
	return nil, nil
}
func (m *mockTagSync) List(context.Context, string, string, int, int) (*models.TagList, error) {
	return &models.TagList{}, nil
}
func (m *mockTagSync) Popular(context.Context, int) ([]models.Tag, error) { return nil, nil }
func (m *mockTagSync) Get(context.Context, string) (*models.Tag, error)  { return nil, nil }
func (m *mockTagSync) Update(context.Context, string, models.CreateTagRequest) error {
	return nil
}
func (m *mockTagSync) Delete(context.Context, string) error     { return nil }
func (m *mockTagSync) RecalcUsage(context.Context) (int, error) { return 0, nil }

func newTestSectionService() (SectionService, *mockSectionRepo, *mockTagSync) {
	repo := newMockSectionRepo()
	tags := &mockTagSync{}
	return NewSectionService(repo, tags), repo, tags
}

func mustCreate(t *testing.T, svc SectionService, title, slug string, parentID *string) *models.CreateSectionResult {
	t.Helper()
	res, err := svc.Create(context.Background(), models.CreateSectionRequest{
		Title:    title,
		Slug:     slug,
		ParentID: parentID,
		Status:   models.StatusPublished,
	})
	if err != nil {
		t.Fatalf("не удалось создать раздел %q: %v", slug, err)
	}
	return res
}

func TestCreateSection_PathInvariant(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	if root.FullPath != "/kvn" {
		t.Fatalf("корень: ожидался путь /kvn, получен %q", root.FullPath)
	}

	child := mustCreate(t, svc, "Высшая лига", "liga", &root.ID)
	grand := mustCreate(t, svc, "Сезон 2024", "2024", &child.ID)

	stored, err := repo.GetByID(ctx, grand.ID)
	if err != nil {
		t.Fatalf("внук не сохранён: %v", err)
	}
	if stored.FullPath != "/kvn/liga/2024" {
		t.Errorf("внук: ожидался путь /kvn/liga/2024, получен %q", stored.FullPath)
	}
	if stored.Level != 2 {
		t.Errorf("внук: ожидался level 2, получен %d", stored.Level)
	}
	if stored.ParentPath == nil || *stored.ParentPath != "/kvn/liga" {
		t.Errorf("внук: ожидался parent_path /kvn/liga, получен %v", stored.ParentPath)
	}

	rootStored, _ := repo.GetByID(ctx, root.ID)
	if rootStored.Level != 0 || rootStored.ParentPath != nil {
		t.Errorf("корень: level=%d, parent_path=%v, ожидались 0 и nil", rootStored.Level, rootStored.ParentPath)
	}
}

func TestCreateSection_SlugNormalization(t *testing.T) {
	svc, _, tags := newTestSectionService()

	res, err := svc.Create(context.Background(), models.CreateSectionRequest{
		Title: "Новый раздел",
		Slug:  "Новый Раздел",
		Tags:  []string{"юмор"},
	})
	if err != nil {
		t.Fatalf("ошибка создания: %v", err)
	}
	if res.Slug != "novyi-razdel" {
		t.Errorf("ожидался slug novyi-razdel, получен %q", res.Slug)
	}
	if len(tags.synced) != 1 {
		t.Errorf("ожидался один вызов синка тегов, получено %d", len(tags.synced))
	}
}

func TestCreateSection_Validation(t *testing.T) {
	svc, _, _ := newTestSectionService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.CreateSectionRequest
	}{
		{"пустой заголовок", models.CreateSectionRequest{Title: "   ", Slug: "x"}},
		{"пустой slug", models.CreateSectionRequest{Title: "X", Slug: "!!!"}},
		{"неизвестный статус", models.CreateSectionRequest{Title: "X", Slug: "x", Status: "hidden"}},
	}

	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.req); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("%s: ожидалась ErrInvalidOperation, получено %v", tc.name, err)
		}
	}
}

func TestCreateSection_MissingParent(t *testing.T) {
	svc, _, _ := newTestSectionService()

	missing := "no-such-id"
	_, err := svc.Create(context.Background(), models.CreateSectionRequest{
		Title: "X", Slug: "x", ParentID: &missing,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound для несуществующего родителя, получено %v", err)
	}
}

func TestCreateSection_SiblingSlugConflict(t *testing.T) {
	svc, _, _ := newTestSectionService()
	ctx := context.Background()

	root1 := mustCreate(t, svc, "КВН", "kvn", nil)
	root2 := mustCreate(t, svc, "Юмор", "humor", nil)
	mustCreate(t, svc, "Лига", "liga", &root1.ID)

	// тот же slug среди тех же соседей — конфликт
	_, err := svc.Create(ctx, models.CreateSectionRequest{Title: "Лига 2", Slug: "liga", ParentID: &root1.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидалась ErrConflict для дубля slug, получено %v", err)
	}

	// тот же slug под другим родителем — допустимо
	res, err := svc.Create(ctx, models.CreateSectionRequest{Title: "Лига", Slug: "liga", ParentID: &root2.ID})
	if err != nil {
		t.Fatalf("slug под другим родителем должен быть допустим: %v", err)
	}
	if res.FullPath != "/humor/liga" {
		t.Errorf("ожидался путь /humor/liga, получен %q", res.FullPath)
	}

	// дубль среди корней — тоже конфликт
	if _, err := svc.Create(ctx, models.CreateSectionRequest{Title: "КВН 2", Slug: "kvn"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидалась ErrConflict для дубля корневого slug, получено %v", err)
	}
}

func TestUpdateSection_RenameCascades(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	a := mustCreate(t, svc, "Лига", "liga", &root.ID)
	b := mustCreate(t, svc, "Сезон", "2024", &a.ID)
	c := mustCreate(t, svc, "Финал", "final", &b.ID)

	newSlug := "kvn-history"
	if _, err := svc.Update(ctx, root.ID, models.UpdateSectionRequest{Slug: &newSlug}); err != nil {
		t.Fatalf("ошибка переименования: %v", err)
	}

	expect := map[string]struct {
		path   string
		parent string
		level  int
	}{
		root.ID: {"/kvn-history", "", 0},
		a.ID:    {"/kvn-history/liga", "/kvn-history", 1},
		b.ID:    {"/kvn-history/liga/2024", "/kvn-history/liga", 2},
		c.ID:    {"/kvn-history/liga/2024/final", "/kvn-history/liga/2024", 3},
	}

	for id, want := range expect {
		s, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("раздел %s пропал после переименования: %v", id, err)
		}
		if s.FullPath != want.path {
			t.Errorf("раздел %s: ожидался путь %q, получен %q", id, want.path, s.FullPath)
		}
		if s.Level != want.level {
			t.Errorf("раздел %s: ожидался level %d, получен %d", id, want.level, s.Level)
		}
		if want.parent == "" {
			if s.ParentPath != nil {
				t.Errorf("раздел %s: ожидался пустой parent_path, получен %q", id, *s.ParentPath)
			}
		} else if s.ParentPath == nil || *s.ParentPath != want.parent {
			t.Errorf("раздел %s: ожидался parent_path %q, получен %v", id, want.parent, s.ParentPath)
		}
	}
}

func TestUpdateSection_MoveSubtree(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root1 := mustCreate(t, svc, "КВН", "kvn", nil)
	root2 := mustCreate(t, svc, "Архив", "archive", nil)
	deep := mustCreate(t, svc, "Старое", "old", &root2.ID)
	a := mustCreate(t, svc, "Лига", "liga", &root1.ID)
	b := mustCreate(t, svc, "Сезон", "2005", &a.ID)

	// перенос поддерева liga под /archive/old — глубина растёт
	_, err := svc.Update(ctx, a.ID, models.UpdateSectionRequest{ParentID: &deep.ID, ParentIDSet: true})
	if err != nil {
		t.Fatalf("ошибка переноса: %v", err)
	}

	moved, _ := repo.GetByID(ctx, a.ID)
	if moved.FullPath != "/archive/old/liga" || moved.Level != 2 {
		t.Errorf("перенесённый: путь %q level %d, ожидались /archive/old/liga и 2", moved.FullPath, moved.Level)
	}
	if moved.ParentID == nil || *moved.ParentID != deep.ID {
		t.Errorf("перенесённый: parent_id не обновлён")
	}

	child, _ := repo.GetByID(ctx, b.ID)
	if child.FullPath != "/archive/old/liga/2005" || child.Level != 3 {
		t.Errorf("потомок: путь %q level %d, ожидались /archive/old/liga/2005 и 3", child.FullPath, child.Level)
	}
	if child.Slug != "2005" {
		t.Errorf("потомок: slug изменился при переносе: %q", child.Slug)
	}

	// перенос в корень: parent_id=null в теле
	if _, err := svc.Update(ctx, a.ID, models.UpdateSectionRequest{ParentIDSet: true}); err != nil {
		t.Fatalf("ошибка переноса в корень: %v", err)
	}
	moved, _ = repo.GetByID(ctx, a.ID)
	if moved.FullPath != "/liga" || moved.Level != 0 || moved.ParentID != nil {
		t.Errorf("в корне: путь %q level %d parent %v", moved.FullPath, moved.Level, moved.ParentID)
	}
}

func TestUpdateSection_CycleRejected(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	child := mustCreate(t, svc, "Лига", "liga", &root.ID)
	grand := mustCreate(t, svc, "Сезон", "2024", &child.ID)

	before, _ := repo.GetByID(ctx, root.ID)

	cases := []struct {
		name   string
		parent string
	}{
		{"сам себе родитель", root.ID},
		{"прямой ребёнок", child.ID},
		{"транзитивный потомок", grand.ID},
	}

	for _, tc := range cases {
		p := tc.parent
		_, err := svc.Update(ctx, root.ID, models.UpdateSectionRequest{ParentID: &p, ParentIDSet: true})
		if !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("%s: ожидалась ErrInvalidOperation, получено %v", tc.name, err)
		}
	}

	// состояние не изменилось
	after, _ := repo.GetByID(ctx, root.ID)
	if after.FullPath != before.FullPath || after.Level != before.Level || !ptrEq(after.ParentID, before.ParentID) {
		t.Errorf("после отклонённого переноса раздел изменился: %+v", after)
	}
}

func TestUpdateSection_NotFound(t *testing.T) {
	svc, _, _ := newTestSectionService()

	title := "X"
	_, err := svc.Update(context.Background(), "missing", models.UpdateSectionRequest{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestDeleteSection_CascadeGuard(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	child := mustCreate(t, svc, "Лига", "liga", &root.ID)
	grand := mustCreate(t, svc, "Сезон", "2024", &child.ID)

	// без cascade раздел с детьми не удаляется
	if _, err := svc.Delete(ctx, root.ID, false); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("ожидалась ErrInvalidOperation без cascade, получено %v", err)
	}
	if _, err := repo.GetByID(ctx, root.ID); err != nil {
		t.Fatal("раздел не должен был удалиться без cascade")
	}

	// с cascade удаляется всё поддерево
	res, err := svc.Delete(ctx, root.ID, true)
	if err != nil {
		t.Fatalf("ошибка каскадного удаления: %v", err)
	}
	if !res.Deleted || !res.Cascaded {
		t.Errorf("неожиданный результат удаления: %+v", res)
	}
	for _, id := range []string{root.ID, child.ID, grand.ID} {
		if _, err := repo.GetByID(ctx, id); !errors.Is(err, pgx.ErrNoRows) {
			t.Errorf("раздел %s уцелел после каскада", id)
		}
	}
}

func TestDeleteSection_Leaf(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	leaf := mustCreate(t, svc, "Лига", "liga", &root.ID)

	if _, err := svc.Delete(ctx, leaf.ID, false); err != nil {
		t.Fatalf("лист должен удаляться без cascade: %v", err)
	}
	if _, err := repo.GetByID(ctx, root.ID); err != nil {
		t.Fatal("родитель не должен был пострадать")
	}

	if _, err := svc.Delete(ctx, "missing", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestTree_AnyInputOrder(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	// узлы заводим "снизу вверх" через репозиторий — порядок на входе
	// дерева не должен играть роли
	now := time.Now().UTC()
	rootID, childID, grandID := "r1", "c1", "g1"
	sections := []*models.Section{
		{ID: grandID, Title: "Сезон", Slug: "2024", FullPath: "/kvn/liga/2024", ParentID: &childID, Level: 2, Status: models.StatusPublished, CreatedAt: now},
		{ID: childID, Title: "Лига", Slug: "liga", FullPath: "/kvn/liga", ParentID: &rootID, Level: 1, Status: models.StatusPublished, CreatedAt: now},
		{ID: rootID, Title: "КВН", Slug: "kvn", FullPath: "/kvn", Level: 0, Status: models.StatusPublished, CreatedAt: now},
	}
	for _, s := range sections {
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("не удалось заполнить репозиторий: %v", err)
		}
	}

	tree, err := svc.Tree(ctx, nil)
	if err != nil {
		t.Fatalf("ошибка построения дерева: %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("ожидался один корень, получено %d", len(tree))
	}
	if tree[0].ID != rootID || len(tree[0].Children) != 1 {
		t.Fatalf("корень собран неверно: %+v", tree[0])
	}
	if tree[0].Children[0].ID != childID || len(tree[0].Children[0].Children) != 1 {
		t.Fatalf("средний уровень собран неверно")
	}
	if tree[0].Children[0].Children[0].ID != grandID {
		t.Fatalf("внук не на своём месте")
	}
}

func TestTree_OrphanExcluded(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	missing := "deleted-parent"
	now := time.Now().UTC()
	_ = repo.Insert(ctx, &models.Section{ID: "r1", Title: "КВН", Slug: "kvn", FullPath: "/kvn", Status: models.StatusPublished, CreatedAt: now})
	_ = repo.Insert(ctx, &models.Section{ID: "o1", Title: "Сирота", Slug: "orphan", FullPath: "/x/orphan", ParentID: &missing, Level: 1, Status: models.StatusPublished, CreatedAt: now})

	tree, err := svc.Tree(ctx, nil)
	if err != nil {
		t.Fatalf("ошибка построения дерева: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != "r1" {
		t.Fatalf("сирота не должна попадать в выдачу: %+v", tree)
	}
}

func TestGet_Breadcrumbs(t *testing.T) {
	svc, _, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	mid := mustCreate(t, svc, "Лига", "liga", &root.ID)
	leaf := mustCreate(t, svc, "Сезон", "2024", &mid.ID)

	detail, err := svc.Get(ctx, leaf.ID, false)
	if err != nil {
		t.Fatalf("ошибка получения: %v", err)
	}

	// предки от корня к родителю, без самого узла
	if len(detail.Breadcrumbs) != 2 {
		t.Fatalf("ожидались 2 хлебные крошки, получено %d", len(detail.Breadcrumbs))
	}
	if detail.Breadcrumbs[0].ID != root.ID || detail.Breadcrumbs[1].ID != mid.ID {
		t.Errorf("порядок крошек неверный: %+v", detail.Breadcrumbs)
	}
	if detail.ParentChainBroken {
		t.Error("цепочка предков цела, флаг не должен быть выставлен")
	}
}

func TestGet_BrokenParentChain(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	missing := "deleted-parent"
	_ = repo.Insert(ctx, &models.Section{
		ID: "s1", Title: "Сирота", Slug: "orphan", FullPath: "/x/orphan",
		ParentID: &missing, Level: 1, Status: models.StatusPublished, CreatedAt: time.Now().UTC(),
	})

	detail, err := svc.Get(ctx, "s1", false)
	if err != nil {
		t.Fatalf("раздел с висячим родителем должен отдаваться: %v", err)
	}
	if !detail.ParentChainBroken {
		t.Error("ожидался флаг parent_chain_broken")
	}
	if len(detail.Breadcrumbs) != 0 {
		t.Errorf("крошки должны быть пустыми, получено %+v", detail.Breadcrumbs)
	}
}

func TestGet_LookupFallback(t *testing.T) {
	svc, _, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	child := mustCreate(t, svc, "Лига", "liga", &root.ID)

	// по slug
	bySlug, err := svc.Get(ctx, "liga", false)
	if err != nil || bySlug.ID != child.ID {
		t.Fatalf("поиск по slug: %v", err)
	}

	// по пути без ведущего слеша
	byPath, err := svc.Get(ctx, "kvn/liga", false)
	if err != nil || byPath.ID != child.ID {
		t.Fatalf("поиск по пути: %v", err)
	}

	// id выигрывает у совпадения по slug
	byID, err := svc.Get(ctx, child.ID, false)
	if err != nil || byID.ID != child.ID {
		t.Fatalf("поиск по id: %v", err)
	}

	if _, err := svc.Get(ctx, "nothing-here", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestGet_ViewsCounter(t *testing.T) {
	svc, repo, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)

	if _, err := svc.Get(ctx, root.ID, true); err != nil {
		t.Fatalf("ошибка получения: %v", err)
	}
	if _, err := svc.Get(ctx, root.ID, false); err != nil {
		t.Fatalf("ошибка получения: %v", err)
	}

	stored, _ := repo.GetByID(ctx, root.ID)
	if stored.Views != 1 {
		t.Errorf("ожидался 1 просмотр, получено %d", stored.Views)
	}
}

func TestChildren_Paginated(t *testing.T) {
	svc, _, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	for _, slug := range []string{"a", "b", "c"} {
		mustCreate(t, svc, "Лига "+slug, slug, &root.ID)
	}

	res, err := svc.Children(ctx, root.ID, 1, 1, nil)
	if err != nil {
		t.Fatalf("ошибка получения детей: %v", err)
	}
	if res.Total != 3 || len(res.Items) != 1 {
		t.Errorf("total=%d items=%d, ожидались 3 и 1", res.Total, len(res.Items))
	}
	if res.Parent.ID != root.ID {
		t.Errorf("родитель в выдаче неверный: %+v", res.Parent)
	}

	if _, err := svc.Children(ctx, "missing", 0, 10, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestList_RootsOnly(t *testing.T) {
	svc, _, _ := newTestSectionService()
	ctx := context.Background()

	root := mustCreate(t, svc, "КВН", "kvn", nil)
	mustCreate(t, svc, "Юмор", "humor", nil)
	mustCreate(t, svc, "Лига", "liga", &root.ID)

	res, err := svc.List(ctx, models.SectionFilter{RootsOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("ошибка списка: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("ожидались 2 корня, получено %d", res.Total)
	}
	for _, s := range res.Items {
		if s.ParentID != nil {
			t.Errorf("в выдаче не корень: %q", s.FullPath)
		}
	}
}
