// Package alerts implements the rule evaluation engine and webhook delivery
// for contamination alerts. Rules are evaluated against each analysed batch;
// webhooks are delivered to Teams, Slack or generic HTTP targets.
package alerts
