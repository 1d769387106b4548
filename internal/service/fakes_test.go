package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// In-memory implementations of the repository interfaces. They follow the
// same contracts as the SQLite store (Upsert never overwrites email, follows
// are idempotent, versions come back newest first) so service rules can be
// tested without a database.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

type fakeAccountRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Account
	nextID int

	upsertErr      error
	updateEmailErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) Upsert(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}

	for _, existing := range f.byID {
		if existing.Login == account.Login && existing.GitHubID != account.GitHubID {
			return apperror.Conflict("account", account.Login)
		}
	}

	for _, existing := range f.byID {
		if existing.GitHubID == account.GitHubID {
			existing.Login = account.Login
			existing.Name = account.Name
			existing.AvatarURL = account.AvatarURL
			existing.GitHubAccessToken = account.GitHubAccessToken
			existing.UpdatedAt = time.Now()
			*account = *existing
			return nil
		}
	}

	f.nextID++
	account.ID = fmt.Sprintf("acc-%d", f.nextID)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	stored := *account
	f.byID[account.ID] = &stored
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccountRepo) GetByLogin(_ context.Context, login string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Login == login {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("account", login)
}

func (f *fakeAccountRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.GitHubID == githubID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("account", fmt.Sprintf("github:%d", githubID))
}

func (f *fakeAccountRepo) UpdateEmail(_ context.Context, id, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateEmailErr != nil {
		return nil, f.updateEmailErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	a.Email = strPtr(email)
	copied := *a
	return &copied, nil
}

type fakeTokenRepo struct {
	accounts *fakeAccountRepo
	byHash   map[string]*model.APIToken
	nextID   int

	lookupErr error
}

func newFakeTokenRepo(accounts *fakeAccountRepo) *fakeTokenRepo {
	return &fakeTokenRepo{accounts: accounts, byHash: make(map[string]*model.APIToken)}
}

func (f *fakeTokenRepo) CreateToken(_ context.Context, token *model.APIToken) error {
	if _, ok := f.byHash[token.TokenHash]; ok {
		return apperror.Conflict("token", token.Prefix)
	}
	f.nextID++
	token.ID = fmt.Sprintf("tok-%d", f.nextID)
	token.CreatedAt = time.Now()
	stored := *token
	f.byHash[token.TokenHash] = &stored
	return nil
}

func (f *fakeTokenRepo) AccountByTokenHash(ctx context.Context, hash string) (*model.Account, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	t, ok := f.byHash[hash]
	if !ok {
		return nil, apperror.NotFound("token", "(redacted)")
	}
	return f.accounts.GetByID(ctx, t.AccountID)
}

type followKey struct{ accountID, packageID string }

type fakeFollowRepo struct {
	follows map[followKey]bool
	listErr error
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{follows: make(map[followKey]bool)}
}

func (f *fakeFollowRepo) Follow(_ context.Context, accountID, packageID string) error {
	f.follows[followKey{accountID, packageID}] = true
	return nil
}

func (f *fakeFollowRepo) Unfollow(_ context.Context, accountID, packageID string) error {
	delete(f.follows, followKey{accountID, packageID})
	return nil
}

func (f *fakeFollowRepo) IsFollowing(_ context.Context, accountID, packageID string) (bool, error) {
	return f.follows[followKey{accountID, packageID}], nil
}

func (f *fakeFollowRepo) FollowedPackageIDs(_ context.Context, accountID string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := []string{}
	for k := range f.follows {
		if k.accountID == accountID {
			ids = append(ids, k.packageID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type fakePackageRepo struct {
	packages map[string]*model.Package // by ID
	owners   map[string][]string       // package ID → account IDs
	versions []model.Version
	nextID   int

	listVersionsCalls int
	lastListOptions   repository.ListOptions
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{
		packages: make(map[string]*model.Package),
		owners:   make(map[string][]string),
	}
}

func (f *fakePackageRepo) CreatePackage(_ context.Context, pkg *model.Package, ownerID string) error {
	for _, p := range f.packages {
		if p.Name == pkg.Name {
			return apperror.Conflict("package", pkg.Name)
		}
	}
	f.nextID++
	pkg.ID = fmt.Sprintf("pkg-%d", f.nextID)
	stored := *pkg
	f.packages[pkg.ID] = &stored
	f.owners[pkg.ID] = []string{ownerID}
	return nil
}

func (f *fakePackageRepo) GetPackageByName(_ context.Context, name string) (*model.Package, error) {
	for _, p := range f.packages {
		if p.Name == name {
			copied := *p
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("package", name)
}

func (f *fakePackageRepo) ListPackagesByOwner(_ context.Context, accountID string) ([]model.Package, error) {
	out := []model.Package{}
	for id, owners := range f.owners {
		for _, o := range owners {
			if o == accountID {
				out = append(out, *f.packages[id])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePackageRepo) AddVersion(_ context.Context, v *model.Version) error {
	f.nextID++
	v.ID = fmt.Sprintf("ver-%03d", f.nextID)
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if p, ok := f.packages[v.PackageID]; ok {
		v.PackageName = p.Name
	}
	f.versions = append(f.versions, *v)
	return nil
}

func (f *fakePackageRepo) IncrementDownloads(_ context.Context, packageID string, delta int64) error {
	p, ok := f.packages[packageID]
	if !ok {
		return apperror.NotFound("package", packageID)
	}
	p.Downloads += delta
	return nil
}

func (f *fakePackageRepo) ListVersions(_ context.Context, packageIDs []string, opts repository.ListOptions) ([]model.Version, error) {
	f.listVersionsCalls++
	f.lastListOptions = opts

	wanted := make(map[string]bool, len(packageIDs))
	for _, id := range packageIDs {
		wanted[id] = true
	}
	matched := []model.Version{}
	for _, v := range f.versions {
		if wanted[v.PackageID] {
			matched = append(matched, v)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if opts.Offset >= len(matched) {
		return []model.Version{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[opts.Offset:end], nil
}

func (f *fakePackageRepo) TotalDownloads(_ context.Context, accountID string) (int64, error) {
	var total int64
	for id, owners := range f.owners {
		for _, o := range owners {
			if o == accountID {
				total += f.packages[id].Downloads
			}
		}
	}
	return total, nil
}
