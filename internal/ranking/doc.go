// Package ranking orders agencies for the leaderboard.
//
// score.go provides the pure Composite(audit) function that blends the four
// Lighthouse categories with the carbon "cleaner than" percentage:
// mean(perf, a11y, best practices, seo) (70%) + cleanerThan (30%).
//
// rank.go provides Rank, a stable sort over a selectable column. Missing
// numeric values always sort last, whatever the direction.
//
// cycle.go holds the header-click transition table used by the
// presentation layer: new column → natural direction, same column →
// flip, third click → back to the default ordering.
package ranking
