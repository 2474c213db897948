// Package leads defines the domain types and the contracts shared by the
// discovery, audit, worker and persistence packages.
//
// A scan starts as a ScanRequest on the work queue. The worker resolves the
// request to a list of URLs (explicit or discovered), audits each URL into a
// SiteAuditResult and merges the result into the Business, Website and
// LeadScore records held by a Store.
package leads
