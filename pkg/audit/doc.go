// Package audit provides comprehensive audit logging for security, compliance, and forensics.
//
// # Overview
//
// This package tracks authentication events, authorization denials, data mutations,
// configuration changes, and admin actions with before/after values and request context.
//
// # Event Types
//
// Authentication: login, logout, token_create, token_revoke
// Authorization: permission_check, role_change, access_denied
// Data: project_create, project_update, team_member_add, invitation_accept
// Admin: user_create, user_deactivate, operator_grant
// Access: project_read, team_read, audit_read
//
// # Usage Example
//
// Log an authorization denial:
//
//	logger.LogAuthorization(ctx, audit.EventTypeAuthzAccessDenied, &userID,
//		audit.ResourceTypeProject, projectID, audit.EventStatusDenied, "project:manage")
//
// Log a data mutation with before/after:
//
//	logger.LogDataMutation(ctx, audit.EventTypeDataProjectUpdate, &userID,
//		audit.ResourceTypeProject, projectID, &audit.ChangeDetails{
//			Before: map[string]interface{}{"name": oldName},
//			After:  map[string]interface{}{"name": newName},
//		}, "project renamed")
//
// Search audit logs:
//
//	results, err := store.Search(ctx, audit.SearchFilter{
//		StartTime:  &start,
//		EndTime:    &end,
//		UserID:     &userID,
//		EventTypes: []audit.EventType{audit.EventTypeAuthzAccessDenied},
//	})
//
// # Retention Policy
//
// Default: 90 days active retention
// Archiving: Compress and move to long-term storage
// Export: JSON, CSV, NDJSON formats for external analysis
//
// # Related Packages
//
//   - pkg/auth: Authentication events
//   - pkg/access: Authorization denials
//   - pkg/middleware: HTTP request logging
package audit
