package book

import (
	"context"
	"time"
)

// Service 图书领域服务
// 设计说明:
// 1. 校验、查重、类型补齐这些规则集中在这里,单本创建和批量导入共用
// 2. 不开启事务,事务边界由应用层(TxManager)决定
type Service interface {
	// CreateBook 校验并创建单本图书
	// 校验失败返回ErrInvalidBook(Err为ValidationErrors),重复返回ErrBookExists
	CreateBook(ctx context.Context, ownerID uint, in Input) (*Book, error)

	// SaveAll 补齐缺失的类型后批量写入图书,返回写入数量
	SaveAll(ctx context.Context, books []*Book) (int, error)

	// EnsureGenres 一次查询已有类型,一次批量创建缺失类型
	// 返回names对应的全部类型(含ID)
	EnsureGenres(ctx context.Context, names []string) ([]*Genre, error)

	// FindExisting 返回keys中已存在的查重键
	FindExisting(ctx context.Context, ownerID uint, keys []TitleAuthor) (map[TitleAuthor]bool, error)

	GetBook(ctx context.Context, ownerID uint, id string) (*Book, error)

	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)

	ListAll(ctx context.Context, ownerID uint) ([]*Book, error)
}

type service struct {
	repo      Repository
	genreRepo GenreRepository
	now       func() time.Time
}

// NewService 创建图书领域服务
func NewService(repo Repository, genreRepo GenreRepository) Service {
	return &service{
		repo:      repo,
		genreRepo: genreRepo,
		now:       time.Now,
	}
}

func (s *service) CreateBook(ctx context.Context, ownerID uint, in Input) (*Book, error) {
	now := s.now()

	normalized, errs := ValidateInput(in, now)
	if len(errs) > 0 {
		return nil, ErrInvalidBook.WithCause(errs)
	}

	key := NewTitleAuthor(normalized.Title, normalized.Author)
	existing, err := s.FindExisting(ctx, ownerID, []TitleAuthor{key})
	if err != nil {
		return nil, err
	}
	if existing[key] {
		return nil, ErrBookExists
	}

	b := NewBook(ownerID, normalized, now)
	if _, err := s.SaveAll(ctx, []*Book{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) SaveAll(ctx context.Context, books []*Book) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}

	var names []string
	for _, b := range books {
		names = append(names, b.Genres...)
	}

	genres, err := s.EnsureGenres(ctx, names)
	if err != nil {
		return 0, err
	}

	if err := s.repo.CreateBatch(ctx, books, genres); err != nil {
		return 0, err
	}
	return len(books), nil
}

func (s *service) EnsureGenres(ctx context.Context, names []string) ([]*Genre, error) {
	names = NormalizeGenres(names)
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := s.genreRepo.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existing))
	for _, g := range existing {
		known[g.Key()] = true
	}

	var missing []*Genre
	for _, name := range names {
		if !known[NormalizeKey(name)] {
			missing = append(missing, &Genre{Name: name})
		}
	}

	if len(missing) > 0 {
		if err := s.genreRepo.CreateBatch(ctx, missing); err != nil {
			return nil, err
		}
	}

	return append(existing, missing...), nil
}

func (s *service) FindExisting(ctx context.Context, ownerID uint, keys []TitleAuthor) (map[TitleAuthor]bool, error) {
	found := make(map[TitleAuthor]bool)
	if len(keys) == 0 {
		return found, nil
	}

	existing, err := s.repo.FindExistingKeys(ctx, ownerID, keys)
	if err != nil {
		return nil, err
	}
	for _, k := range existing {
		found[k] = true
	}
	return found, nil
}

func (s *service) GetBook(ctx context.Context, ownerID uint, id string) (*Book, error) {
	return s.repo.FindByID(ctx, ownerID, id)
}

func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *service) ListAll(ctx context.Context, ownerID uint) ([]*Book, error) {
	return s.repo.ListAll(ctx, ownerID)
}
