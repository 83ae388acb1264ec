package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"listing_id",
			"guest_id",
			"check_in",
			"check_out",
			"guests",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"listing_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"guest_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"host_id": bson.M{
				"bsonType": "string",
			},

			"check_in": bson.M{
				"bsonType": "date",
			},

			"check_out": bson.M{
				"bsonType": "date",
			},

			"guests": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  20,
			},

			"contact_phone": bson.M{
				"bsonType": "string",
			},

			"pricing": bson.M{
				"bsonType": "object",
				"required": []string{"nightly_rate_cents", "nights", "total_cents", "currency"},
				"properties": bson.M{
					"nightly_rate_cents": bson.M{"bsonType": "long", "minimum": 1},
					"nights":             bson.M{"bsonType": "int", "minimum": 1},
					"cleaning_fee_cents": bson.M{"bsonType": "long", "minimum": 0},
					"platform_fee_cents": bson.M{"bsonType": "long", "minimum": 0},
					"tax_cents":          bson.M{"bsonType": "long", "minimum": 0},
					"total_cents":        bson.M{"bsonType": "long", "minimum": 1},
					"currency":           bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_payment",
					"payment_processing",
					"confirmed",
					"completed",
					"cancelled_by_guest",
					"cancelled_by_host",
					"cancelled_by_system",
				},
			},

			"payment_intent_id": bson.M{
				"bsonType": "string",
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"succeeded",
					"failed",
					"refunded",
				},
			},

			"payment_attempts": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"calendar_block_id": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},

			"completed_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
