package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coco/internal/consts"
	"coco/internal/dao"
	"coco/internal/model/entity"
)

var _ dao.StakeDao = (*StakeDao)(nil)

type poolKey struct {
	coinId    string
	alertType consts.AlertType
}

// StakeDao 进程内质押池。WithPoolLock 按池键加锁，fn 成功后才写回
type StakeDao struct {
	mu     sync.RWMutex
	locks  sync.Map // poolKey -> *sync.Mutex
	pools  map[poolKey]entity.StakePool
	stakes map[poolKey][]entity.Stake
}

func NewStakeDao() *StakeDao {
	return &StakeDao{
		pools:  make(map[poolKey]entity.StakePool),
		stakes: make(map[poolKey][]entity.Stake),
	}
}

func (d *StakeDao) WithPoolLock(ctx context.Context, coinId string, alertType consts.AlertType, capacity int, fn func(tx dao.StakeTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := poolKey{coinId, alertType}
	l, _ := d.locks.LoadOrStore(k, &sync.Mutex{})
	lock := l.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	d.mu.RLock()
	pool, ok := d.pools[k]
	stakes := append([]entity.Stake(nil), d.stakes[k]...)
	d.mu.RUnlock()
	if !ok {
		now := time.Now()
		pool = entity.StakePool{
			CoinID: coinId, AlertType: alertType, Capacity: capacity,
			Cycle: 1, State: consts.PoolOpen, CreatedAt: now, UpdatedAt: now,
		}
	}

	tx := &stakeTx{pool: pool, stakes: stakes}
	if err := fn(tx); err != nil {
		return err
	}

	d.mu.Lock()
	d.pools[k] = tx.pool
	d.stakes[k] = tx.stakes
	d.mu.Unlock()
	return nil
}

func (d *StakeDao) PoolGet(_ context.Context, coinId string, alertType consts.AlertType) (*entity.StakePool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.pools[poolKey{coinId, alertType}]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	return &p, nil
}

func (d *StakeDao) PoolListByState(_ context.Context, state consts.PoolState) ([]entity.StakePool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.StakePool
	for _, p := range d.pools {
		if p.State == state {
			out = append(out, p)
		}
	}
	sortPools(out)
	return out, nil
}

func (d *StakeDao) PoolListVerified(_ context.Context, coinIds []string) ([]entity.StakePool, error) {
	want := make(map[string]struct{}, len(coinIds))
	for _, c := range coinIds {
		want[c] = struct{}{}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.StakePool
	for _, p := range d.pools {
		if _, ok := want[p.CoinID]; ok && p.Outcome == consts.OutcomeVerified {
			out = append(out, p)
		}
	}
	sortPools(out)
	return out, nil
}

func (d *StakeDao) StakeList(_ context.Context, coinId string, alertType consts.AlertType, cycle int) ([]entity.Stake, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []entity.Stake
	for _, s := range d.stakes[poolKey{coinId, alertType}] {
		if s.Cycle == cycle {
			out = append(out, s)
		}
	}
	return out, nil
}

func sortPools(pools []entity.StakePool) {
	sort.Slice(pools, func(i, j int) bool {
		if pools[i].CoinID != pools[j].CoinID {
			return pools[i].CoinID < pools[j].CoinID
		}
		return pools[i].AlertType < pools[j].AlertType
	})
}

type stakeTx struct {
	pool   entity.StakePool
	stakes []entity.Stake
}

func (t *stakeTx) Pool() *entity.StakePool { return &t.pool }

func (t *stakeTx) SavePool() error {
	t.pool.UpdatedAt = time.Now()
	return nil
}

func (t *stakeTx) CycleStakes() ([]entity.Stake, error) {
	var out []entity.Stake
	for _, s := range t.stakes {
		if s.Cycle == t.pool.Cycle {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *stakeTx) HasPending(userId string) (bool, error) {
	for _, s := range t.stakes {
		if s.UserID == userId && s.Status == consts.StakePending {
			return true, nil
		}
	}
	return false, nil
}

func (t *stakeTx) CreateStake(stake *entity.Stake) error {
	for _, s := range t.stakes {
		if s.ID == stake.ID {
			return dao.ErrDuplicateKey
		}
	}
	t.stakes = append(t.stakes, *stake)
	return nil
}

func (t *stakeTx) ResolveStakes(cycle int, status consts.StakeStatus, at time.Time) (int64, error) {
	var n int64
	for i := range t.stakes {
		s := &t.stakes[i]
		if s.Cycle == cycle && s.Status == consts.StakePending {
			s.Status = status
			resolvedAt := at
			s.ResolvedAt = &resolvedAt
			n++
		}
	}
	return n, nil
}

func (t *stakeTx) ArchiveStakes(cycle int) error {
	for i := range t.stakes {
		if t.stakes[i].Cycle == cycle {
			t.stakes[i].Archived = true
		}
	}
	return nil
}
