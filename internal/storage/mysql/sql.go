package mysql

const selectApprovalsSQL = `
SELECT review_id, approved
FROM approvals
`

const upsertApprovalSQL = `
INSERT INTO approvals (review_id, approved)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE approved = VALUES(approved)
`

// Absent rows start at false, so the first toggle inserts true.
const toggleApprovalSQL = `
INSERT INTO approvals (review_id, approved)
VALUES (?, 1)
ON DUPLICATE KEY UPDATE approved = NOT approved
`

const selectApprovalSQL = `
SELECT approved FROM approvals WHERE review_id = ?
`
