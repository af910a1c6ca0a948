package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

// defaultMaxNodes caps how many members a single report walk may touch.
const defaultMaxNodes = 5000

// SubtreeReport is the recursive sales roll-up for one member. NetworkSales
// covers the entire downline at every depth, deliberately broader than the
// one-level network credit written to the ledger.
type SubtreeReport struct {
	UserID        uuid.UUID        `json:"user_id"`
	DisplayName   string           `json:"display_name"`
	ReferralCode  string           `json:"referral_code"`
	PersonalSales float64          `json:"personal_sales"`
	NetworkSales  float64          `json:"network_sales"`
	TotalSales    float64          `json:"total_sales"`
	Children      []*SubtreeReport `json:"children"`
}

// Aggregator produces read-only hierarchical sales reports. It never
// mutates state and tolerates concurrent settlements by working from a
// point-in-time snapshot of the directory.
type Aggregator struct {
	users    UserStore
	sales    SalesStore
	maxNodes int
}

// NewAggregator constructs an Aggregator. maxNodes <= 0 selects the default
// ceiling.
func NewAggregator(users UserStore, sales SalesStore, maxNodes int) *Aggregator {
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}
	return &Aggregator{users: users, sales: sales, maxNodes: maxNodes}
}

// Subtree aggregates sales for one root over [from, to). The second return
// value reports whether the walk hit the node ceiling and truncated the
// tree.
func (a *Aggregator) Subtree(ctx context.Context, rootID uuid.UUID, from, to time.Time) (*SubtreeReport, bool, error) {
	snapshot, totals, err := a.load(ctx, from, to)
	if err != nil {
		return nil, false, err
	}

	report, truncated := buildSubtree(snapshot, totals, rootID, a.maxNodes)
	if report == nil {
		return nil, false, ErrUserNotFound
	}
	return report, truncated, nil
}

// AllRoots aggregates every member without a (resolvable) referrer, sharing
// one node budget across the whole forest.
func (a *Aggregator) AllRoots(ctx context.Context, from, to time.Time) ([]*SubtreeReport, bool, error) {
	snapshot, totals, err := a.load(ctx, from, to)
	if err != nil {
		return nil, false, err
	}

	present := make(map[uuid.UUID]bool, len(snapshot))
	for _, user := range snapshot {
		present[user.ID] = true
	}

	budget := a.maxNodes
	truncated := false
	reports := []*SubtreeReport{}
	for i := range snapshot {
		user := &snapshot[i]
		if user.ReferrerID != nil && present[*user.ReferrerID] {
			continue
		}
		if budget <= 0 {
			truncated = true
			break
		}
		report, hit := buildSubtree(snapshot, totals, user.ID, budget)
		if report == nil {
			continue
		}
		truncated = truncated || hit
		budget -= countNodes(report)
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].TotalSales > reports[j].TotalSales
	})
	return reports, truncated, nil
}

func (a *Aggregator) load(ctx context.Context, from, to time.Time) ([]models.User, map[uuid.UUID]float64, error) {
	snapshot, err := a.users.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	totals, err := a.sales.TotalsByUser(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, totals, nil
}

// buildSubtree walks the snapshot iteratively from rootID. A visited set
// guards against referral cycles, which should never exist but must not
// hang a report when they do; the walk then logs and returns the partial
// tree. Returns nil when rootID is not in the snapshot.
func buildSubtree(snapshot []models.User, totals map[uuid.UUID]float64, rootID uuid.UUID, maxNodes int) (*SubtreeReport, bool) {
	index := make(map[uuid.UUID]*models.User, len(snapshot))
	for i := range snapshot {
		index[snapshot[i].ID] = &snapshot[i]
	}

	children := make(map[uuid.UUID][]*models.User)
	for i := range snapshot {
		user := &snapshot[i]
		if user.ReferrerID == nil {
			continue
		}
		if _, ok := index[*user.ReferrerID]; !ok {
			// Dangling referrer: the user is effectively a root.
			continue
		}
		children[*user.ReferrerID] = append(children[*user.ReferrerID], user)
	}
	for _, list := range children {
		sort.Slice(list, func(i, j int) bool {
			if list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].ID.String() < list[j].ID.String()
			}
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	}

	root, ok := index[rootID]
	if !ok {
		return nil, false
	}

	type node struct {
		report *SubtreeReport
		parent *SubtreeReport
	}

	visited := map[uuid.UUID]bool{rootID: true}
	rootReport := newReport(root, totals)
	order := []node{{report: rootReport}}
	stack := []*models.User{root}
	reportFor := map[uuid.UUID]*SubtreeReport{rootID: rootReport}
	truncated := false

	// Pre-order walk collecting nodes, then a reverse sweep rolls child
	// totals up into parents without recursion.
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parentReport := reportFor[current.ID]

		for _, child := range children[current.ID] {
			if visited[child.ID] {
				log.Printf("[Aggregator] referral cycle detected at user %s, returning partial subtree", child.ID)
				continue
			}
			if len(order) >= maxNodes {
				truncated = true
				break
			}
			visited[child.ID] = true
			report := newReport(child, totals)
			parentReport.Children = append(parentReport.Children, report)
			reportFor[child.ID] = report
			order = append(order, node{report: report, parent: parentReport})
			stack = append(stack, child)
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		n.report.TotalSales = n.report.PersonalSales + n.report.NetworkSales
		if n.parent != nil {
			n.parent.NetworkSales += n.report.TotalSales
		}
	}

	return rootReport, truncated
}

func newReport(user *models.User, totals map[uuid.UUID]float64) *SubtreeReport {
	return &SubtreeReport{
		UserID:        user.ID,
		DisplayName:   user.DisplayName,
		ReferralCode:  user.ReferralCode,
		PersonalSales: totals[user.ID],
		Children:      []*SubtreeReport{},
	}
}

func countNodes(report *SubtreeReport) int {
	count := 1
	for _, child := range report.Children {
		count += countNodes(child)
	}
	return count
}
