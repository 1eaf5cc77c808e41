// Package output renders pixelsync-cli results as a table, JSON or YAML.
//
// Types that know their own layout implement Tabular; everything else is
// laid out by reflection over exported fields, using json tag names as
// column headers. YAML output keeps the JSON field names and order.
package output
