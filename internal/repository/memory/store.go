// internal/repository/memory/store.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/platewise/costing/internal/domain"
)

// Store is an in-memory record store. It backs the engine tests and the seed
// tool's dry-run mode; the Postgres implementation is the production one.
type Store struct {
	mu         sync.RWMutex
	units      map[string]domain.Unit
	items      map[string]domain.InventoryItem
	recipes    map[string]domain.Recipe
	components map[string][]domain.RecipeComponent // keyed by recipe ID
	menuItems  map[string]domain.MenuItem
	levels     map[levelKey]float64
	counts     map[string]domain.InventoryCount
	countLines map[string]domain.InventoryCountLine
	receipts   []domain.ReceiptLine
	transfers  []domain.TransferLog
	wastes     []domain.WasteLog
	sales      map[string]domain.Sale
	saleLines  map[string][]domain.SaleLine // keyed by sale ID
}

type levelKey struct {
	itemID     string
	locationID string
}

func NewStore() *Store {
	return &Store{
		units:      make(map[string]domain.Unit),
		items:      make(map[string]domain.InventoryItem),
		recipes:    make(map[string]domain.Recipe),
		components: make(map[string][]domain.RecipeComponent),
		menuItems:  make(map[string]domain.MenuItem),
		levels:     make(map[levelKey]float64),
		counts:     make(map[string]domain.InventoryCount),
		countLines: make(map[string]domain.InventoryCountLine),
		sales:      make(map[string]domain.Sale),
		saleLines:  make(map[string][]domain.SaleLine),
	}
}

// --- units ---

func (s *Store) GetUnit(ctx context.Context, id string) (*domain.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, domain.ErrUnitNotFound
	}
	return &u, nil
}

func (s *Store) ListUnits(ctx context.Context) ([]*domain.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	units := make([]*domain.Unit, 0, len(s.units))
	for id := range s.units {
		u := s.units[id]
		units = append(units, &u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}

func (s *Store) CreateUnit(ctx context.Context, unit *domain.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit.ID] = *unit
	return nil
}

// --- items ---

func (s *Store) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

func (s *Store) ListItems(ctx context.Context) ([]*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*domain.InventoryItem, 0, len(s.items))
	for id := range s.items {
		it := s.items[id]
		items = append(items, &it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	return nil
}

func (s *Store) UpdateItemCost(ctx context.Context, id string, cost decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	it.LastCost = cost
	it.UpdatedAt = time.Now()
	s.items[id] = it
	return nil
}

// --- recipes ---

func (s *Store) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	return &r, nil
}

func (s *Store) AllRecipeIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.recipes))
	for id := range s.recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CreateRecipe(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[recipe.ID] = *recipe
	return nil
}

func (s *Store) AddComponent(ctx context.Context, component *domain.RecipeComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[component.RecipeID]; !ok {
		return domain.ErrRecipeNotFound
	}
	s.components[component.RecipeID] = append(s.components[component.RecipeID], *component)
	return nil
}

func (s *Store) ListComponents(ctx context.Context, recipeID string) ([]*domain.RecipeComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.recipes[recipeID]; !ok {
		return nil, domain.ErrRecipeNotFound
	}
	stored := s.components[recipeID]
	components := make([]*domain.RecipeComponent, 0, len(stored))
	for i := range stored {
		c := stored[i]
		components = append(components, &c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].SortOrder < components[j].SortOrder })
	return components, nil
}

func (s *Store) ParentRecipeIDs(ctx context.Context, recipeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parents := make([]string, 0)
	for parentID, comps := range s.components {
		for _, c := range comps {
			if c.ComponentType == domain.ComponentRecipe && c.ComponentID == recipeID {
				parents = append(parents, parentID)
				break
			}
		}
	}
	sort.Strings(parents)
	return parents, nil
}

func (s *Store) UpdateComputedCost(ctx context.Context, id string, cost decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return domain.ErrRecipeNotFound
	}
	r.ComputedCost = &cost
	r.UpdatedAt = time.Now()
	s.recipes[id] = r
	return nil
}

// --- menu ---

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menuItems[id]
	if !ok {
		return nil, domain.ErrMenuItemNotFound
	}
	return &m, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menuItems[item.ID] = *item
	return nil
}

// --- levels ---

func (s *Store) GetOnHand(ctx context.Context, itemID, locationID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.levels[levelKey{itemID, locationID}], nil
}

func (s *Store) SetOnHand(ctx context.Context, itemID, locationID string, baseQty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[levelKey{itemID, locationID}] = baseQty
	return nil
}

func (s *Store) MoveOnHand(ctx context.Context, itemID, fromLocationID, toLocationID string, baseQty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[levelKey{itemID, fromLocationID}] -= baseQty
	s.levels[levelKey{itemID, toLocationID}] += baseQty
	return nil
}

// --- counts ---

func (s *Store) CreateCount(ctx context.Context, count *domain.InventoryCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[count.ID] = *count
	return nil
}

func (s *Store) GetCount(ctx context.Context, id string) (*domain.InventoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counts[id]
	if !ok {
		return nil, domain.ErrCountNotFound
	}
	return &c, nil
}

func (s *Store) CreateCountLine(ctx context.Context, line *domain.InventoryCountLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counts[line.CountID]; !ok {
		return domain.ErrCountNotFound
	}
	s.countLines[line.ID] = *line
	return nil
}

func (s *Store) GetCountLine(ctx context.Context, lineID string) (*domain.InventoryCountLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.countLines[lineID]
	if !ok {
		return nil, domain.ErrCountLineNotFound
	}
	return &l, nil
}

func (s *Store) UpdateCountLine(ctx context.Context, line *domain.InventoryCountLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countLines[line.ID]; !ok {
		return domain.ErrCountLineNotFound
	}
	s.countLines[line.ID] = *line
	return nil
}

func (s *Store) ListCountLines(ctx context.Context, countID string) ([]*domain.InventoryCountLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.counts[countID]; !ok {
		return nil, domain.ErrCountNotFound
	}
	lines := make([]*domain.InventoryCountLine, 0)
	for id := range s.countLines {
		if s.countLines[id].CountID == countID {
			l := s.countLines[id]
			lines = append(lines, &l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (s *Store) DeleteCount(ctx context.Context, countID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counts[countID]; !ok {
		return domain.ErrCountNotFound
	}
	for id, line := range s.countLines {
		if line.CountID == countID {
			delete(s.countLines, id)
		}
	}
	delete(s.counts, countID)
	return nil
}

func (s *Store) CountsInRange(ctx context.Context, locationID string, start, end time.Time) ([]*domain.InventoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make([]*domain.InventoryCount, 0)
	for id := range s.counts {
		c := s.counts[id]
		if c.LocationID != locationID {
			continue
		}
		if c.CountedAt.Before(start) || c.CountedAt.After(end) {
			continue
		}
		counts = append(counts, &c)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].CountedAt.Before(counts[j].CountedAt) })
	return counts, nil
}

func (s *Store) LatestCountLine(ctx context.Context, itemID, locationID string) (*domain.InventoryCount, *domain.InventoryCountLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		bestCount *domain.InventoryCount
		bestLine  *domain.InventoryCountLine
	)
	for id := range s.countLines {
		line := s.countLines[id]
		if line.ItemID != itemID {
			continue
		}
		count, ok := s.counts[line.CountID]
		if !ok || count.LocationID != locationID {
			continue
		}
		if bestCount == nil || count.CountedAt.After(bestCount.CountedAt) {
			c, l := count, line
			bestCount, bestLine = &c, &l
		}
	}
	if bestCount == nil {
		return nil, nil, domain.ErrNoBaseline
	}
	return bestCount, bestLine, nil
}

// --- receipts ---

func (s *Store) CreateReceiptLine(ctx context.Context, line *domain.ReceiptLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, *line)
	return nil
}

func (s *Store) ReceiptsForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.ReceiptLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := make([]*domain.ReceiptLine, 0)
	for i := range s.receipts {
		r := s.receipts[i]
		if r.ItemID != itemID || r.LocationID != locationID {
			continue
		}
		if r.ReceivedAt.Before(start) || r.ReceivedAt.After(end) {
			continue
		}
		lines = append(lines, &r)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ReceivedAt.Before(lines[j].ReceivedAt) })
	return lines, nil
}

// --- transfers ---

func (s *Store) CreateTransfer(ctx context.Context, log *domain.TransferLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, *log)
	return nil
}

func (s *Store) TransfersForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.TransferLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]*domain.TransferLog, 0)
	for i := range s.transfers {
		t := s.transfers[i]
		if t.ItemID != itemID {
			continue
		}
		if t.FromLocationID != locationID && t.ToLocationID != locationID {
			continue
		}
		if t.TransferredAt.Before(start) || t.TransferredAt.After(end) {
			continue
		}
		logs = append(logs, &t)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].TransferredAt.Before(logs[j].TransferredAt) })
	return logs, nil
}

// --- waste ---

func (s *Store) CreateWaste(ctx context.Context, log *domain.WasteLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wastes = append(s.wastes, *log)
	return nil
}

func (s *Store) WastesForItem(ctx context.Context, itemID, locationID string, start, end time.Time) ([]*domain.WasteLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]*domain.WasteLog, 0)
	for i := range s.wastes {
		w := s.wastes[i]
		if w.ItemID != itemID || w.LocationID != locationID {
			continue
		}
		if w.WastedAt.Before(start) || w.WastedAt.After(end) {
			continue
		}
		logs = append(logs, &w)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].WastedAt.Before(logs[j].WastedAt) })
	return logs, nil
}

// --- sales ---

func (s *Store) CreateSale(ctx context.Context, sale *domain.Sale, lines []*domain.SaleLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = *sale
	stored := make([]domain.SaleLine, len(lines))
	for i, l := range lines {
		stored[i] = *l
	}
	s.saleLines[sale.ID] = stored
	return nil
}

func (s *Store) SalesInRange(ctx context.Context, storeID string, start, end time.Time) ([]*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sales := make([]*domain.Sale, 0)
	for id := range s.sales {
		sale := s.sales[id]
		if sale.StoreID != storeID {
			continue
		}
		if sale.SoldAt.Before(start) || sale.SoldAt.After(end) {
			continue
		}
		sales = append(sales, &sale)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].SoldAt.Before(sales[j].SoldAt) })
	return sales, nil
}

func (s *Store) ListSaleLines(ctx context.Context, saleID string) ([]*domain.SaleLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.saleLines[saleID]
	lines := make([]*domain.SaleLine, 0, len(stored))
	for i := range stored {
		l := stored[i]
		lines = append(lines, &l)
	}
	return lines, nil
}
