package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Owned is implemented by every aggregate root that belongs to exactly one user.
type Owned interface {
	OwnerID() primitive.ObjectID
}

// Owns reports whether userID is the recorded owner of resource.
// A nil resource or a nil user ID never matches.
func Owns(userID primitive.ObjectID, resource Owned) bool {
	if resource == nil || userID == primitive.NilObjectID {
		return false
	}
	return resource.OwnerID() == userID
}
