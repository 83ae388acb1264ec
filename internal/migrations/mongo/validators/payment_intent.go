package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentIntentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"amount_cents",
			"currency",
			"idempotency_key",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"amount_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"app_fee_cents": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"destination": bson.M{
				"bsonType": "string",
			},

			"idempotency_key": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
