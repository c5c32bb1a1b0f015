package model

// Dataset is the portable form of a whole database, used by import and
// export. Ids are preserved so votes and links keep pointing at the same
// records.
type Dataset struct {
	Users              []User              `json:"users,omitempty" yaml:"users,omitempty"`
	Conversations      []Conversation      `json:"conversations,omitempty" yaml:"conversations,omitempty"`
	Comments           []Comment           `json:"comments,omitempty" yaml:"comments,omitempty"`
	Votes              []Vote              `json:"votes,omitempty" yaml:"votes,omitempty"`
	Clusterizations    []Clusterization    `json:"clusterizations,omitempty" yaml:"clusterizations,omitempty"`
	Clusters           []Cluster           `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Stereotypes        []Stereotype        `json:"stereotypes,omitempty" yaml:"stereotypes,omitempty"`
	StereotypeVotes    []StereotypeVote    `json:"stereotype_votes,omitempty" yaml:"stereotype_votes,omitempty"`
	ClusterStereotypes []ClusterStereotype `json:"cluster_stereotypes,omitempty" yaml:"cluster_stereotypes,omitempty"`
	Memberships        []Membership        `json:"memberships,omitempty" yaml:"memberships,omitempty"`
}
