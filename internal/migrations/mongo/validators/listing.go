package validators

import "go.mongodb.org/mongo-driver/bson"

var ListingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"host_id",
			"nightly_rate_cents",
			"currency",
			"max_guests",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"host_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"nightly_rate_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"cleaning_fee_cents": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"max_guests": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  20,
			},

			"payout_account": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"active",
					"suspended",
					"delisted",
				},
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
