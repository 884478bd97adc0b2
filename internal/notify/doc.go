// Package notify delivers a webhook notification each time an agency's
// audit is refreshed. Slack, Teams and generic HTTP targets are supported;
// delivery failures are logged and never affect the refresh.
package notify
