package models

// Committee is a standing committee ("comissão") identified by a short code.
type Committee struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Member belongs to exactly one committee.
type Member struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CommitteeID int64  `json:"committee_id"`
}

// CommitteeWithMembers is the review-form view of a committee.
type CommitteeWithMembers struct {
	Committee
	Members []Member `json:"members"`
}
